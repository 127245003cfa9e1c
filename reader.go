package tarhdr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/testlabtools/tarhdr/block"
	"github.com/testlabtools/tarhdr/pax"
)

// Reader provides sequential access to the headers of a tar archive and to
// the content of the current entry.
//
// Example:
//
//	tr := tarhdr.NewReader(f, tarhdr.Options{})
//	for {
//		hdr, err := tr.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		io.Copy(os.Stdout, tr)
//	}
type Reader struct {
	src  block.Source
	opts Options
	log  *slog.Logger

	// blk is the current content block and off the number of its bytes
	// already consumed.
	blk block.Block
	off int

	// nb is the number of content bytes of the current entry that remain
	// unread.
	nb int64

	// err is sticky: once set, every call returns it.
	err error
}

// NewReader creates a Reader reading blocks from r.
func NewReader(r io.Reader, o Options) *Reader {
	return NewBlockReader(block.NewReader(r), o)
}

// NewBlockReader creates a Reader on top of any block source.
func NewBlockReader(src block.Source, o Options) *Reader {
	o = o.withDefaults()
	return &Reader{
		src:  src,
		opts: o,
		log:  o.Log,
		off:  block.Size,
	}
}

// Next advances to the next entry and returns its resolved header. Content of
// the previous entry that was not read is skipped. io.EOF is returned at the
// end of the archive. On error no header is returned.
func (tr *Reader) Next() (*Header, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	hdr, err := tr.next()
	tr.err = err
	return hdr, err
}

// overrides holds the extension values collected while resolving one
// header. A fresh value is used for every entry so nothing from a previous
// entry can leak into the next.
type overrides struct {
	name, link       string
	hasName, hasLink bool

	pax pax.Records

	// seen counts the extension headers consumed.
	seen int
}

func (o *overrides) mergePAX(recs pax.Records) {
	if o.pax == nil {
		o.pax = make(pax.Records, len(recs))
	}
	for k, v := range recs {
		o.pax[k] = v
	}
}

// apply merges the overrides into hdr. GNU values go first so that PAX
// values, when both are present, win.
func (o *overrides) apply(hdr *Header) {
	if o.hasName {
		hdr.Name = o.name
	}
	if o.hasLink {
		hdr.Linkname = o.link
	}
	if path, ok := o.pax.Path(); ok {
		hdr.Name = path
	}
	if link, ok := o.pax.Linkpath(); ok {
		hdr.Linkname = link
	}
}

func (tr *Reader) next() (*Header, error) {
	if err := tr.skipUnread(); err != nil {
		return nil, err
	}

	var ovr overrides

	for {
		f, err := tr.readBase()
		if err == io.EOF && ovr.seen > 0 {
			return nil, fmt.Errorf("%w: archive ends after %d extension header(s)", ErrTruncated, ovr.seen)
		}
		if err != nil {
			return nil, err
		}

		switch f.TypeFlag {
		case block.TypeGNULongLink:
			buf, err := tr.readPayload(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read GNU long link: %w", err)
			}
			ovr.link, ovr.hasLink = cString(buf), true
			ovr.seen++

			tr.log.Debug("GNU long link detected", "size", f.Size, "link", ovr.link)

		case block.TypeGNULongName:
			buf, err := tr.readPayload(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read GNU long name: %w", err)
			}
			ovr.name, ovr.hasName = cString(buf), true
			ovr.seen++

			tr.log.Debug("GNU long name detected", "size", f.Size, "name", ovr.name)

		case block.TypeXHeader, block.TypeXGlobalHeader:
			buf, err := tr.readPayload(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read PAX extended header: %w", err)
			}
			// The records outlive the read of the real header below and are
			// merged into it once it is decoded.
			recs := pax.Parse(buf)
			ovr.mergePAX(recs)
			ovr.seen++

			tr.log.Debug("PAX extended header detected",
				"size", f.Size,
				"typeflag", string(f.TypeFlag),
				"records", len(recs),
			)

		default:
			hdr := newHeader(f)
			ovr.apply(hdr)

			tr.nb = 0
			if hdr.hasContent() {
				tr.nb = hdr.Size
			}
			tr.off = block.Size

			return hdr, nil
		}
	}
}

// readBase reads and decodes the next header block, skipping zero blocks.
// It returns io.EOF at the end of the archive: either the stream ends on a
// block boundary or, unless IgnoreEOF is set, two zero blocks follow each
// other.
func (tr *Reader) readBase() (block.Fields, error) {
	var b block.Block
	zeros := 0
	for {
		if err := tr.src.ReadBlock(&b); err != nil {
			return block.Fields{}, err
		}

		if b.IsZero() {
			zeros++
			if !tr.opts.IgnoreEOF && zeros >= 2 {
				return block.Fields{}, io.EOF
			}
			continue
		}

		if zeros > 0 {
			tr.log.Debug("skipped zero blocks", "count", zeros)
		}

		return block.Decode(&b, tr.opts.checks())
	}
}

// readPayload reads the blocks following an extension header and returns
// exactly f.Size bytes of them.
func (tr *Reader) readPayload(f block.Fields) ([]byte, error) {
	n, err := block.Count(f.Size)
	if err != nil {
		return nil, fmt.Errorf("payload of %d bytes: %w", f.Size, err)
	}
	if f.Size > tr.opts.MaxExtensionSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrAllocation, f.Size, tr.opts.MaxExtensionSize)
	}

	buf := make([]byte, n*block.Size)
	for i := 0; i < n; i++ {
		b := (*block.Block)(buf[i*block.Size : (i+1)*block.Size])
		if err := tr.src.ReadBlock(b); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: payload block %d of %d missing", ErrTruncated, i+1, n)
			}
			return nil, err
		}
	}

	return buf[:f.Size], nil
}

// Read reads content of the current entry. It returns io.EOF at the end of
// the entry.
func (tr *Reader) Read(p []byte) (int, error) {
	if tr.err != nil {
		return 0, tr.err
	}
	if tr.nb == 0 {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) && tr.nb > 0 {
		if tr.off == block.Size {
			if err := tr.readContentBlock(); err != nil {
				tr.err = err
				return n, err
			}
		}

		chunk := tr.blk[tr.off:]
		if int64(len(chunk)) > tr.nb {
			chunk = chunk[:tr.nb]
		}
		m := copy(p[n:], chunk)
		tr.off += m
		tr.nb -= int64(m)
		n += m
	}

	return n, nil
}

func (tr *Reader) readContentBlock() error {
	if err := tr.src.ReadBlock(&tr.blk); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: entry content ends early", ErrTruncated)
		}
		return err
	}
	tr.off = 0
	return nil
}

// skipUnread discards the rest of the current entry, padding included.
func (tr *Reader) skipUnread() error {
	if tr.nb == 0 {
		return nil
	}

	// Bytes left in the current block are padding or content already
	// buffered; only whole blocks beyond it need reading.
	skip := tr.nb - int64(block.Size-tr.off)
	tr.nb = 0
	tr.off = block.Size
	if skip <= 0 {
		return nil
	}

	// Counted in int64 so entries past the int range skip on 32-bit too.
	for ; skip > 0; skip -= block.Size {
		if err := tr.readContentBlock(); err != nil {
			return err
		}
	}
	tr.off = block.Size

	return nil
}

// cString returns b up to its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
