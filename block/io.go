package block

import (
	"errors"
	"fmt"
	"io"
)

// Source yields successive blocks. ReadBlock fills b completely or fails: it
// returns io.EOF when the stream ends exactly on a block boundary and
// ErrTruncated when it ends inside a block.
type Source interface {
	ReadBlock(b *Block) error
}

// Sink consumes successive blocks. WriteBlock writes all of b or fails.
type Sink interface {
	WriteBlock(b *Block) error
}

// Reader adapts an io.Reader to a Source.
type Reader struct {
	r io.Reader

	// n is the number of complete blocks read so far.
	n int64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (br *Reader) ReadBlock(b *Block) error {
	n, err := io.ReadFull(br.r, b[:])
	switch {
	case err == nil:
		br.n++
		return nil
	case err == io.EOF:
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: block %d has %d of %d bytes", ErrTruncated, br.n, n, Size)
	default:
		return fmt.Errorf("failed to read block %d: %w", br.n, err)
	}
}

// Blocks returns the number of complete blocks read.
func (br *Reader) Blocks() int64 {
	return br.n
}

// Writer adapts an io.Writer to a Sink.
type Writer struct {
	w io.Writer

	// n is the number of complete blocks written so far.
	n int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (bw *Writer) WriteBlock(b *Block) error {
	n, err := bw.w.Write(b[:])
	if err != nil {
		if errors.Is(err, io.ErrShortWrite) {
			return fmt.Errorf("%w: block %d has %d of %d bytes: %w", ErrTruncated, bw.n, n, Size, err)
		}
		return fmt.Errorf("failed to write block %d: %w", bw.n, err)
	}
	if n != Size {
		return fmt.Errorf("%w: block %d has %d of %d bytes", ErrTruncated, bw.n, n, Size)
	}
	bw.n++
	return nil
}

// Blocks returns the number of complete blocks written.
func (bw *Writer) Blocks() int64 {
	return bw.n
}
