package block

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates a short read or write in the middle of a block
	// or of an extension payload.
	ErrTruncated = errors.New("tar: truncated block")

	// ErrCorrupt indicates a header that failed one of the enabled checks.
	ErrCorrupt = errors.New("tar: corrupt header")

	// ErrTooLarge indicates a size whose block count cannot be represented.
	ErrTooLarge = errors.New("tar: size too large")

	// ErrFieldTooLong indicates a string that does not fit its header field.
	ErrFieldTooLong = errors.New("tar: field too long")
)

// Check names one validation performed by Decode.
type Check string

const (
	CheckMagic    Check = "magic"
	CheckVersion  Check = "version"
	CheckChecksum Check = "checksum"
	CheckSize     Check = "size"
)

// HeaderError reports the check a header block failed. It unwraps to
// ErrCorrupt.
type HeaderError struct {
	Check Check
	Value string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("tar: corrupt header: bad %s %q", e.Check, e.Value)
}

func (e *HeaderError) Unwrap() error {
	return ErrCorrupt
}
