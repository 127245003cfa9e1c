package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/testlabtools/tarhdr"
	"github.com/testlabtools/tarhdr/compress"
	"github.com/testlabtools/tarhdr/remote"
)

// archive is an opened, decompressed archive stream.
type archive struct {
	io.Reader

	codec   compress.Codec
	closers []io.Closer
}

func (a *archive) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openArchive opens a local file, stdin for "-", or an http(s) URL, and
// strips whatever compression it uses.
func openArchive(ctx context.Context, l *slog.Logger, name string, stdin io.Reader) (*archive, error) {
	var src io.ReadCloser
	switch {
	case name == "-":
		src = io.NopCloser(stdin)
	case remote.IsURL(name):
		body, err := remote.NewClient(l, 0).Open(ctx, name)
		if err != nil {
			return nil, err
		}
		src = body
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		src = f
	}

	r, codec, err := compress.NewReader(src)
	if err != nil {
		src.Close()
		return nil, err
	}

	l.Debug("opened archive", "name", name, "compression", codec)

	return &archive{
		Reader:  r,
		codec:   codec,
		closers: []io.Closer{src, r},
	}, nil
}

// describe formats hdr as one line of a long listing.
func describe(hdr *tarhdr.Header) string {
	flag := hdr.Typeflag
	if flag == tarhdr.TypeRegA {
		flag = tarhdr.TypeReg
	}

	owner := hdr.Uname
	if owner == "" {
		owner = fmt.Sprint(hdr.Uid)
	}
	group := hdr.Gname
	if group == "" {
		group = fmt.Sprint(hdr.Gid)
	}

	s := fmt.Sprintf("%c %s %s/%s %10d %s %s",
		flag,
		fs.FileMode(hdr.Mode&0o7777).String(),
		owner, group,
		hdr.Size,
		hdr.ModTime.UTC().Format(time.DateTime),
		hdr.Name,
	)

	switch hdr.Typeflag {
	case tarhdr.TypeSymlink:
		s += " -> " + hdr.Linkname
	case tarhdr.TypeLink:
		s += " link to " + hdr.Linkname
	}

	return s
}
