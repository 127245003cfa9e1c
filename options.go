package tarhdr

import (
	"log/slog"

	"github.com/testlabtools/tarhdr/block"
)

// DefaultMaxExtensionSize caps the payload of a single GNU or PAX extension
// header when Options.MaxExtensionSize is zero.
const DefaultMaxExtensionSize = 1 << 20

// Options configures a Reader or Writer. The zero value runs every header
// check and writes plain USTAR headers.
type Options struct {
	// SkipMagicCheck accepts headers whose magic is not "ustar".
	SkipMagicCheck bool

	// SkipVersionCheck accepts headers whose version does not match their
	// magic ("00" for POSIX, " \x00" for GNU).
	SkipVersionCheck bool

	// SkipChecksum accepts headers with a wrong checksum.
	SkipChecksum bool

	// GNU makes the Writer emit GNU long-name/long-link records for names
	// and link targets longer than 100 bytes, with GNU magic.
	GNU bool

	// PAX makes the Writer emit a PAX extended header for over-long names
	// and link targets. GNU takes precedence when both are set.
	PAX bool

	// IgnoreEOF skips zero blocks instead of treating two of them as the end
	// of the archive, for concatenated archives.
	IgnoreEOF bool

	// MaxExtensionSize is the largest extension payload the Reader buffers.
	// If omitted (or zero), DefaultMaxExtensionSize is used.
	MaxExtensionSize int64

	// Log receives debug messages about extension headers. If nil,
	// slog.Default() is used.
	Log *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxExtensionSize == 0 {
		o.MaxExtensionSize = DefaultMaxExtensionSize
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return o
}

func (o Options) checks() block.Checks {
	return block.Checks{
		SkipMagic:    o.SkipMagicCheck,
		SkipVersion:  o.SkipVersionCheck,
		SkipChecksum: o.SkipChecksum,
	}
}

func (o Options) format() block.Format {
	if o.GNU {
		return block.FormatGNU
	}
	return block.FormatUSTAR
}
