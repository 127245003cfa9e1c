// Package compress frames tar streams in zstd, gzip, xz or bzip2 and detects
// which of them a stream uses from its leading magic bytes.
package compress

import (
	"bytes"
	"fmt"
	"strings"
)

// Codec identifies a compression format.
type Codec int

const (
	None Codec = iota
	Zstd
	Gzip
	Xz
	Bzip2
)

var codecNames = map[Codec]string{
	None:  "none",
	Zstd:  "zstd",
	Gzip:  "gzip",
	Xz:    "xz",
	Bzip2: "bzip2",
}

func (c Codec) String() string {
	if s, ok := codecNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Codec(%d)", int(c))
}

// Extension returns the usual file name suffix for archives using c.
func (c Codec) Extension() string {
	switch c {
	case Zstd:
		return ".tar.zst"
	case Gzip:
		return ".tar.gz"
	case Xz:
		return ".tar.xz"
	case Bzip2:
		return ".tar.bz2"
	default:
		return ".tar"
	}
}

// ParseCodec parses a codec name as printed by Codec.String. An empty string
// is None.
func ParseCodec(s string) (Codec, error) {
	if s == "" {
		return None, nil
	}
	for c, name := range codecNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return None, fmt.Errorf("unknown compression %q", s)
}

// magicLen is the number of leading bytes Detect needs to see.
const magicLen = 10

var magics = []struct {
	codec Codec
	magic []byte
}{
	{Zstd, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{Gzip, []byte{0x1F, 0x8B, 0x08}},
	{Xz, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}},
}

// A bzip2 stream starts with "BZh", the block size level and either a block
// magic or, for an empty stream, the end of stream magic. "BZh" alone is a
// plausible tar entry name.
var (
	bzip2Magic       = []byte("BZh")
	bzip2BlockMagic  = []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}
	bzip2StreamMagic = []byte{0x17, 0x72, 0x45, 0x38, 0x50, 0x90}
)

// Detect returns the codec whose magic bytes prefix source, or None.
func Detect(source []byte) Codec {
	for _, m := range magics {
		if bytes.HasPrefix(source, m.magic) {
			return m.codec
		}
	}
	if isBzip2(source) {
		return Bzip2
	}
	return None
}

func isBzip2(source []byte) bool {
	if len(source) < 10 || !bytes.HasPrefix(source, bzip2Magic) {
		return false
	}
	if level := source[3]; level < '1' || level > '9' {
		return false
	}
	rest := source[4:10]
	return bytes.Equal(rest, bzip2BlockMagic) || bytes.Equal(rest, bzip2StreamMagic)
}
