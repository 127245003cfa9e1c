package compress

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrUnsupported is returned when writing a codec that can only be read.
var ErrUnsupported = errors.New("compression not supported for writing")

// NewReader detects the codec of r and returns a reader of the decompressed
// stream. Closing it does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Codec, error) {
	buf := bufio.NewReader(r)

	// A stream shorter than any magic is plain; Peek reports io.EOF for it.
	bs, err := buf.Peek(magicLen)
	if err != nil && err != io.EOF {
		return nil, None, fmt.Errorf("failed to detect compression: %w", err)
	}

	codec := Detect(bs)
	switch codec {
	case Zstd:
		z, err := zstd.NewReader(buf)
		if err != nil {
			return nil, codec, fmt.Errorf("failed to create Zstd reader: %w", err)
		}
		return z.IOReadCloser(), codec, nil
	case Gzip:
		z, err := gzip.NewReader(buf)
		if err != nil {
			return nil, codec, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return z, codec, nil
	case Xz:
		z, err := xz.NewReader(buf)
		if err != nil {
			return nil, codec, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return io.NopCloser(z), codec, nil
	case Bzip2:
		return io.NopCloser(bzip2.NewReader(buf)), codec, nil
	default:
		return io.NopCloser(buf), None, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing into w with codec c. Close flushes
// the compressor but does not close w.
func NewWriter(w io.Writer, c Codec) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Zstd:
		z, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create Zstd writer: %w", err)
		}
		return z, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Xz:
		z, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return z, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
}

// Compress compresses data with codec c into the writer.
func Compress(data *bytes.Buffer, w io.Writer, c Codec) error {
	z, err := NewWriter(w, c)
	if err != nil {
		return err
	}

	if _, err := z.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write compressed content: %w", err)
	}

	if err := z.Close(); err != nil {
		return fmt.Errorf("failed to close %s writer: %w", c, err)
	}

	return nil
}

// Decompress decompresses r, whatever its codec, into the writer.
func Decompress(r io.Reader, w io.Writer) error {
	z, codec, err := NewReader(r)
	if err != nil {
		return err
	}
	defer z.Close()

	if _, err := io.Copy(w, z); err != nil {
		return fmt.Errorf("failed to read %s content: %w", codec, err)
	}

	return nil
}
