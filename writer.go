package tarhdr

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/testlabtools/tarhdr/block"
	"github.com/testlabtools/tarhdr/pax"
)

// Writer provides sequential writing of a tar archive.
// Call WriteHeader to begin a new entry, then Write to supply its content.
//
// Example:
//
//	tw := tarhdr.NewWriter(f, tarhdr.Options{GNU: true})
//	hdr := &tarhdr.Header{Name: name, Typeflag: tarhdr.TypeReg, Size: 15}
//	if err := tw.WriteHeader(hdr); err != nil {
//		return err
//	}
//	io.Copy(tw, data)
//	tw.Close()
type Writer struct {
	dst  block.Sink
	opts Options
	log  *slog.Logger

	// blk buffers content until a full block can be written; off is the
	// number of bytes buffered.
	blk block.Block
	off int

	// nb is the number of content bytes the current header still expects.
	nb int64

	// err is sticky: once the sink failed, every call returns it.
	err error
}

// NewWriter creates a Writer writing blocks to w.
func NewWriter(w io.Writer, o Options) *Writer {
	return NewBlockWriter(block.NewWriter(w), o)
}

// NewBlockWriter creates a Writer on top of any block sink.
func NewBlockWriter(dst block.Sink, o Options) *Writer {
	o = o.withDefaults()
	return &Writer{
		dst:  dst,
		opts: o,
		log:  o.Log,
	}
}

// WriteHeader writes hdr, preceded by whatever extension records its name
// and link target need, and prepares to receive the entry's content.
// hdr is not modified.
func (tw *Writer) WriteHeader(hdr *Header) error {
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := tw.writeHeader(hdr); err != nil {
		tw.err = err
		return err
	}

	tw.nb = 0
	if hdr.hasContent() {
		tw.nb = hdr.Size
	}

	return nil
}

func (tw *Writer) writeHeader(hdr *Header) error {
	if hdr.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrCorrupt, hdr.Size)
	}

	f := hdr.fields(tw.opts.format())

	longName := len(hdr.Name) > block.NameSize
	longLink := len(hdr.Linkname) > block.NameSize

	switch {
	case tw.opts.GNU:
		// Long link first, then long name: the order the Reader expects
		// them in.
		if longLink {
			payload := append([]byte(hdr.Linkname), 0)
			if err := tw.writeExtension(f, block.TypeGNULongLink, payload); err != nil {
				return fmt.Errorf("failed to write GNU long link: %w", err)
			}
		}
		if longName {
			payload := append([]byte(hdr.Name), 0)
			if err := tw.writeExtension(f, block.TypeGNULongName, payload); err != nil {
				return fmt.Errorf("failed to write GNU long name: %w", err)
			}
		}

	case tw.opts.PAX:
		var payload []byte
		if longName {
			payload = pax.AppendRecord(payload, pax.Path, hdr.Name)
		}
		if longLink {
			payload = pax.AppendRecord(payload, pax.Linkpath, hdr.Linkname)
		}
		if len(payload) > 0 {
			if err := tw.writeExtension(f, block.TypeXHeader, payload); err != nil {
				return fmt.Errorf("failed to write PAX extended header: %w", err)
			}
		}

	default:
		if longLink {
			return fmt.Errorf("%w: linkname %q needs the GNU or PAX format", ErrFieldTooLong, hdr.Linkname)
		}
		if longName {
			prefix, suffix, ok := splitUSTARPath(hdr.Name)
			if !ok {
				return fmt.Errorf("%w: name %q needs the GNU or PAX format", ErrFieldTooLong, hdr.Name)
			}
			f.Prefix, f.Name = prefix, suffix
		}
	}

	// Readers that understand the extension records ignore these; others
	// get a truncated value.
	f.Name = truncate(f.Name, block.NameSize)
	f.LinkName = truncate(f.LinkName, block.NameSize)

	b, err := block.Encode(f)
	if err != nil {
		return err
	}
	if err := tw.dst.WriteBlock(b); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return nil
}

// writeExtension writes a synthetic header of the given type followed by
// the zero-padded payload blocks. The synthetic header is a copy of the
// real header's fields with its own type, size and name; f itself is not
// touched, so the real header keeps its own type and size.
func (tw *Writer) writeExtension(f block.Fields, flag byte, payload []byte) error {
	ext := f
	ext.TypeFlag = flag
	ext.Size = int64(len(payload))
	ext.Name = longLinkName
	if flag == block.TypeXHeader {
		ext.Name = paxHeaderName
	}
	ext.LinkName = ""
	ext.Prefix = ""

	n, err := block.Count(ext.Size)
	if err != nil {
		return err
	}

	b, err := block.Encode(ext)
	if err != nil {
		return err
	}
	if err := tw.dst.WriteBlock(b); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		var pb block.Block
		copy(pb[:], payload[i*block.Size:])
		if err := tw.dst.WriteBlock(&pb); err != nil {
			return err
		}
	}

	tw.log.Debug("wrote extension header",
		"typeflag", string(flag),
		"size", ext.Size,
		"blocks", n,
	)

	return nil
}

// Write writes content of the current entry. It returns ErrWriteTooLong if
// more than the header's Size bytes are written after WriteHeader.
func (tw *Writer) Write(p []byte) (int, error) {
	if tw.err != nil {
		return 0, tw.err
	}

	var err error
	if int64(len(p)) > tw.nb {
		p = p[:tw.nb]
		err = ErrWriteTooLong
	}

	n := 0
	for n < len(p) {
		m := copy(tw.blk[tw.off:], p[n:])
		tw.off += m
		tw.nb -= int64(m)
		n += m

		if tw.off == block.Size {
			if werr := tw.dst.WriteBlock(&tw.blk); werr != nil {
				tw.err = werr
				return n, werr
			}
			tw.off = 0
		}
	}

	return n, err
}

// Flush pads the current entry to a block boundary. It fails if the entry
// is missing content.
func (tw *Writer) Flush() error {
	if tw.err != nil {
		return tw.err
	}
	if tw.nb > 0 {
		return fmt.Errorf("tar: missed writing %d bytes", tw.nb)
	}
	if tw.off == 0 {
		return nil
	}

	clear(tw.blk[tw.off:])
	if err := tw.dst.WriteBlock(&tw.blk); err != nil {
		tw.err = err
		return err
	}
	tw.off = 0

	return nil
}

// Close flushes the current entry and writes the two zero blocks that end
// the archive. It does not close the underlying writer.
func (tw *Writer) Close() error {
	if tw.err == ErrWriteAfterClose {
		return nil
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var zero block.Block
	for i := 0; i < 2; i++ {
		if err := tw.dst.WriteBlock(&zero); err != nil {
			tw.err = err
			return fmt.Errorf("failed to write trailer: %w", err)
		}
	}

	tw.err = ErrWriteAfterClose

	return nil
}
