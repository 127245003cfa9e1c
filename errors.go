package tarhdr

import (
	"errors"

	"github.com/testlabtools/tarhdr/block"
)

var (
	ErrTruncated    = block.ErrTruncated
	ErrCorrupt      = block.ErrCorrupt
	ErrTooLarge     = block.ErrTooLarge
	ErrFieldTooLong = block.ErrFieldTooLong

	// ErrAllocation indicates an extension payload larger than
	// Options.MaxExtensionSize.
	ErrAllocation = errors.New("tar: extension payload exceeds buffer limit")

	// ErrWriteTooLong indicates more content than the header's Size.
	ErrWriteTooLong = errors.New("tar: write too long")

	// ErrWriteAfterClose indicates use of a closed Writer.
	ErrWriteAfterClose = errors.New("tar: write after close")
)
