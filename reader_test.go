package tarhdr

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlabtools/tarhdr/block"
	"github.com/testlabtools/tarhdr/pax"
)

func baseFields(name string, flag byte, size int64) block.Fields {
	return block.Fields{
		Name:     name,
		Mode:     0644,
		UID:      501,
		GID:      20,
		Size:     size,
		ModTime:  1361157466,
		TypeFlag: flag,
		Uname:    "user",
		Gname:    "staff",
		Format:   block.FormatUSTAR,
	}
}

// appendEntry encodes f into buf followed by payload, padded to a block
// boundary. f.Size is written as given, so it may disagree with payload.
func appendEntry(t *testing.T, buf *bytes.Buffer, f block.Fields, payload []byte) {
	t.Helper()

	b, err := block.Encode(f)
	require.NoError(t, err)

	buf.Write(b[:])
	buf.Write(payload)
	buf.Write(make([]byte, block.Padding(int64(len(payload)))))
}

func appendTrailer(buf *bytes.Buffer) {
	buf.Write(make([]byte, 2*block.Size))
}

func longName(n int) string {
	return strings.Repeat("n", n)
}

func TestReaderExtensions(t *testing.T) {
	name := "very/" + longName(295)
	link := "target/" + longName(200)
	path := pax.AppendRecord(nil, pax.Path, "foo/bar")

	var tests = []struct {
		name  string
		build func(t *testing.T, buf *bytes.Buffer)
		want  *Header
	}{
		{
			name: "plain",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields("short.txt", TypeReg, 0), nil)
			},
			want: &Header{Name: "short.txt"},
		},
		{
			name: "ustar prefix",
			build: func(t *testing.T, buf *bytes.Buffer) {
				f := baseFields("file.txt", TypeReg, 0)
				f.Prefix = "some/dir"
				appendEntry(t, buf, f, nil)
			},
			want: &Header{Name: "some/dir/file.txt"},
		},
		{
			name: "gnu long name",
			build: func(t *testing.T, buf *bytes.Buffer) {
				payload := append([]byte(name), 0)
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, int64(len(payload))), payload)
				appendEntry(t, buf, baseFields(name[:100], TypeReg, 0), nil)
			},
			want: &Header{Name: name},
		},
		{
			name: "gnu long link and name",
			build: func(t *testing.T, buf *bytes.Buffer) {
				lp := append([]byte(link), 0)
				np := append([]byte(name), 0)
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongLink, int64(len(lp))), lp)
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, int64(len(np))), np)
				f := baseFields(name[:100], TypeSymlink, 0)
				f.LinkName = link[:100]
				appendEntry(t, buf, f, nil)
			},
			want: &Header{Name: name, Linkname: link},
		},
		{
			name: "gnu name without terminator",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, int64(len(name))), []byte(name))
				appendEntry(t, buf, baseFields("x", TypeReg, 0), nil)
			},
			want: &Header{Name: name},
		},
		{
			name: "pax path",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields(paxHeaderName, TypeXHeader, int64(len(path))), path)
				appendEntry(t, buf, baseFields("short", TypeReg, 0), nil)
			},
			want: &Header{Name: "foo/bar"},
		},
		{
			name: "pax global header",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields(paxHeaderName, TypeXGlobalHeader, int64(len(path))), path)
				appendEntry(t, buf, baseFields("short", TypeReg, 0), nil)
			},
			want: &Header{Name: "foo/bar"},
		},
		{
			name: "pax wins over gnu",
			build: func(t *testing.T, buf *bytes.Buffer) {
				np := append([]byte(name), 0)
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, int64(len(np))), np)
				appendEntry(t, buf, baseFields(paxHeaderName, TypeXHeader, int64(len(path))), path)
				appendEntry(t, buf, baseFields("short", TypeReg, 0), nil)
			},
			want: &Header{Name: "foo/bar"},
		},
		{
			name: "pax wins over gnu in any order",
			build: func(t *testing.T, buf *bytes.Buffer) {
				np := append([]byte(name), 0)
				appendEntry(t, buf, baseFields(paxHeaderName, TypeXHeader, int64(len(path))), path)
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, int64(len(np))), np)
				appendEntry(t, buf, baseFields("short", TypeReg, 0), nil)
			},
			want: &Header{Name: "foo/bar"},
		},
		{
			name: "pax without known keys",
			build: func(t *testing.T, buf *bytes.Buffer) {
				recs := pax.AppendRecord(nil, "mtime", "1361157466.5")
				appendEntry(t, buf, baseFields(paxHeaderName, TypeXHeader, int64(len(recs))), recs)
				appendEntry(t, buf, baseFields("short", TypeReg, 0), nil)
			},
			want: &Header{Name: "short"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			tt.build(t, &buf)
			appendTrailer(&buf)

			tr := NewReader(&buf, Options{Log: slogt.New(t)})

			hdr, err := tr.Next()
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tt.want.Name, hdr.Name)
			assert.Equal(tt.want.Linkname, hdr.Linkname)
			assert.Equal(int64(0644), hdr.Mode)
			assert.Equal("user", hdr.Uname)

			_, err = tr.Next()
			assert.Equal(io.EOF, err)
		})
	}
}

func TestReaderOverridesDoNotLeak(t *testing.T) {
	assert := assert.New(t)

	name := longName(150)
	np := append([]byte(name), 0)

	var buf bytes.Buffer
	appendEntry(t, &buf, baseFields(longLinkName, TypeGNULongName, int64(len(np))), np)
	appendEntry(t, &buf, baseFields("first", TypeReg, 0), nil)
	appendEntry(t, &buf, baseFields("second", TypeReg, 0), nil)
	appendTrailer(&buf)

	tr := NewReader(&buf, Options{Log: slogt.New(t)})

	hdr, err := tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(name, hdr.Name)

	hdr, err = tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("second", hdr.Name)
}

func TestReaderChecks(t *testing.T) {
	var tests = []struct {
		name   string
		format block.Format
		flip   int
		opts   Options
		check  block.Check
	}{
		{
			name:   "checksum",
			format: block.FormatUSTAR,
			flip:   10,
			check:  block.CheckChecksum,
		},
		{
			name:   "checksum skipped",
			format: block.FormatUSTAR,
			flip:   10,
			opts:   Options{SkipChecksum: true},
		},
		{
			name:   "all checks skipped",
			format: block.FormatUSTAR,
			flip:   10,
			opts:   Options{SkipChecksum: true, SkipMagicCheck: true, SkipVersionCheck: true},
		},
		{
			name:   "v7 magic",
			format: block.FormatV7,
			flip:   -1,
			check:  block.CheckMagic,
		},
		{
			name:   "v7 version",
			format: block.FormatV7,
			flip:   -1,
			opts:   Options{SkipMagicCheck: true},
			check:  block.CheckVersion,
		},
		{
			name:   "v7 accepted",
			format: block.FormatV7,
			flip:   -1,
			opts:   Options{SkipMagicCheck: true, SkipVersionCheck: true},
		},
		{
			name:   "gnu accepted",
			format: block.FormatGNU,
			flip:   -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			f := baseFields("file.txt", TypeReg, 0)
			f.Format = tt.format

			var buf bytes.Buffer
			appendEntry(t, &buf, f, nil)
			appendTrailer(&buf)

			data := buf.Bytes()
			if tt.flip >= 0 {
				data[tt.flip] ^= 0x01
			}

			tt.opts.Log = slogt.New(t)
			tr := NewReader(bytes.NewReader(data), tt.opts)

			hdr, err := tr.Next()
			if tt.check != "" {
				assert.ErrorIs(err, ErrCorrupt)
				assert.Nil(hdr)

				var herr *block.HeaderError
				if assert.ErrorAs(err, &herr) {
					assert.Equal(tt.check, herr.Check)
				}

				// Errors are sticky.
				_, again := tr.Next()
				assert.Equal(err, again)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal("file.txt", hdr.Name)
		})
	}
}

func TestReaderEOF(t *testing.T) {
	var tests = []struct {
		name   string
		build  func(t *testing.T, buf *bytes.Buffer)
		opts   Options
		names  []string
		expErr error
	}{
		{
			name:   "empty stream",
			build:  func(t *testing.T, buf *bytes.Buffer) {},
			expErr: io.EOF,
		},
		{
			name:   "two zero blocks",
			build:  func(t *testing.T, buf *bytes.Buffer) { appendTrailer(buf) },
			expErr: io.EOF,
		},
		{
			name: "no trailer",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields("a", TypeReg, 0), nil)
			},
			names:  []string{"a"},
			expErr: io.EOF,
		},
		{
			name: "single zero block is skipped",
			build: func(t *testing.T, buf *bytes.Buffer) {
				buf.Write(make([]byte, block.Size))
				appendEntry(t, buf, baseFields("a", TypeReg, 0), nil)
				appendTrailer(buf)
			},
			names:  []string{"a"},
			expErr: io.EOF,
		},
		{
			name: "entries after trailer are ignored",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields("a", TypeReg, 0), nil)
				appendTrailer(buf)
				appendEntry(t, buf, baseFields("b", TypeReg, 0), nil)
			},
			names:  []string{"a"},
			expErr: io.EOF,
		},
		{
			name: "ignore eof",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields("a", TypeReg, 0), nil)
				appendTrailer(buf)
				appendEntry(t, buf, baseFields("b", TypeReg, 0), nil)
				appendTrailer(buf)
			},
			opts:   Options{IgnoreEOF: true},
			names:  []string{"a", "b"},
			expErr: io.EOF,
		},
		{
			name: "partial block",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields("a", TypeReg, 0), nil)
				buf.Write([]byte("garbage"))
			},
			names:  []string{"a"},
			expErr: ErrTruncated,
		},
		{
			name: "extension header at end",
			build: func(t *testing.T, buf *bytes.Buffer) {
				np := append([]byte(longName(120)), 0)
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, int64(len(np))), np)
				appendTrailer(buf)
			},
			expErr: ErrTruncated,
		},
		{
			name: "extension payload cut short",
			build: func(t *testing.T, buf *bytes.Buffer) {
				np := []byte(longName(block.Size))
				appendEntry(t, buf, baseFields(longLinkName, TypeGNULongName, 600), np)
			},
			expErr: ErrTruncated,
		},
		{
			name: "content cut short",
			build: func(t *testing.T, buf *bytes.Buffer) {
				appendEntry(t, buf, baseFields("a", TypeReg, 2*block.Size), make([]byte, block.Size))
			},
			names:  []string{"a"},
			expErr: ErrTruncated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			tt.build(t, &buf)

			tt.opts.Log = slogt.New(t)
			tr := NewReader(&buf, tt.opts)

			var names []string
			var err error
			for {
				var hdr *Header
				hdr, err = tr.Next()
				if err != nil {
					break
				}
				names = append(names, hdr.Name)
			}

			assert.Equal(tt.names, names)
			assert.ErrorIs(err, tt.expErr)
		})
	}
}

func TestReaderExtensionSize(t *testing.T) {
	var tests = []struct {
		name   string
		size   int64
		max    int64
		expErr error
	}{
		{
			name:   "block count overflow",
			size:   math.MaxInt64,
			expErr: ErrTooLarge,
		},
		{
			name:   "default limit",
			size:   DefaultMaxExtensionSize + 1,
			expErr: ErrAllocation,
		},
		{
			name:   "custom limit",
			size:   200,
			max:    100,
			expErr: ErrAllocation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			f := baseFields(longLinkName, TypeGNULongName, tt.size)
			f.Format = block.FormatGNU
			appendEntry(t, &buf, f, nil)
			appendTrailer(&buf)

			tr := NewReader(&buf, Options{MaxExtensionSize: tt.max, Log: slogt.New(t)})

			hdr, err := tr.Next()
			assert.Nil(hdr)
			assert.ErrorIs(err, tt.expErr)
		})
	}
}

func TestReaderContent(t *testing.T) {
	assert := assert.New(t)

	first := bytes.Repeat([]byte("0123456789"), 70)
	second := []byte("hello, world")

	var buf bytes.Buffer
	appendEntry(t, &buf, baseFields("first", TypeReg, int64(len(first))), first)
	appendEntry(t, &buf, baseFields("dir", TypeDir, 0), nil)
	appendEntry(t, &buf, baseFields("second", TypeReg, int64(len(second))), second)
	appendEntry(t, &buf, baseFields("third", TypeReg, int64(len(first))), first)
	appendTrailer(&buf)

	tr := NewReader(&buf, Options{Log: slogt.New(t)})

	// Partially read the first entry; Next skips the rest.
	hdr, err := tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("first", hdr.Name)

	p := make([]byte, 5)
	n, err := tr.Read(p)
	assert.NoError(err)
	assert.Equal(5, n)
	assert.Equal("01234", string(p))

	hdr, err = tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("dir", hdr.Name)

	n, err = tr.Read(p)
	assert.Equal(0, n)
	assert.Equal(io.EOF, err)

	hdr, err = tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("second", hdr.Name)

	data, err := io.ReadAll(tr)
	assert.NoError(err)
	assert.Equal(second, data)

	// The third entry is skipped without reading.
	hdr, err = tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("third", hdr.Name)

	_, err = tr.Next()
	assert.Equal(io.EOF, err)
}

// blockSource serves blocks from a slice and counts reads.
type blockSource struct {
	blocks []block.Block
	reads  int
}

func (s *blockSource) ReadBlock(b *block.Block) error {
	if s.reads >= len(s.blocks) {
		return io.EOF
	}
	*b = s.blocks[s.reads]
	s.reads++
	return nil
}

func TestReaderBlockSource(t *testing.T) {
	assert := assert.New(t)

	name := longName(300)

	var sink blockSink
	tw := NewBlockWriter(&sink, Options{GNU: true, Log: slogt.New(t)})
	err := tw.WriteHeader(&Header{Name: name, Typeflag: TypeReg})
	if !assert.NoError(err) {
		return
	}
	assert.NoError(tw.Close())

	src := &blockSource{blocks: sink.blocks}
	tr := NewBlockReader(src, Options{Log: slogt.New(t)})

	hdr, err := tr.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(name, hdr.Name)
	assert.Equal(block.FormatGNU, hdr.Format)
	assert.Equal(3, src.reads)

	_, err = tr.Next()
	assert.Equal(io.EOF, err)
}

func TestReaderSkipUnread(t *testing.T) {
	encode := func(f block.Fields) block.Block {
		b, err := block.Encode(f)
		if err != nil {
			t.Fatalf("failed to encode %q: %v", f.Name, err)
		}
		return *b
	}

	t.Run("partial read", func(t *testing.T) {
		assert := assert.New(t)

		var content block.Block
		src := &blockSource{blocks: []block.Block{
			encode(baseFields("first", TypeReg, 1500)),
			content, content, content,
			encode(baseFields("second", TypeDir, 0)),
			{}, {},
		}}
		tr := NewBlockReader(src, Options{Log: slogt.New(t)})

		_, err := tr.Next()
		if !assert.NoError(err) {
			return
		}
		n, err := tr.Read(make([]byte, 5))
		assert.NoError(err)
		assert.Equal(5, n)
		assert.Equal(2, src.reads)

		hdr, err := tr.Next()
		if !assert.NoError(err) {
			return
		}
		assert.Equal("second", hdr.Name)
		assert.Equal(5, src.reads)

		_, err = tr.Next()
		assert.Equal(io.EOF, err)
	})

	t.Run("entry larger than 2 GiB", func(t *testing.T) {
		assert := assert.New(t)

		var content block.Block
		src := &blockSource{blocks: []block.Block{
			encode(baseFields("huge", TypeReg, 3<<30)),
			content, content,
		}}
		tr := NewBlockReader(src, Options{Log: slogt.New(t)})

		hdr, err := tr.Next()
		if !assert.NoError(err) {
			return
		}
		assert.Equal(int64(3<<30), hdr.Size)

		// Skipping runs into the end of the source, not a size limit.
		_, err = tr.Next()
		assert.ErrorIs(err, ErrTruncated)
		assert.NotErrorIs(err, ErrTooLarge)
		assert.Equal(3, src.reads)
	})
}

func TestReaderArchiveTar(t *testing.T) {
	name := "deep/" + longName(250)
	link := "link/" + longName(150)

	var tests = []struct {
		name   string
		format tar.Format
	}{
		{name: "gnu", format: tar.FormatGNU},
		{name: "pax", format: tar.FormatPAX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			tw := tar.NewWriter(&buf)

			content := []byte("some content")
			err := tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeReg,
				Name:     name,
				Mode:     0600,
				Size:     int64(len(content)),
				ModTime:  time.Unix(1361157466, 0),
				Format:   tt.format,
			})
			require.NoError(t, err)
			_, err = tw.Write(content)
			require.NoError(t, err)

			err = tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     "short",
				Linkname: link,
				ModTime:  time.Unix(1361157466, 0),
				Format:   tt.format,
			})
			require.NoError(t, err)
			require.NoError(t, tw.Close())

			tr := NewReader(&buf, Options{Log: slogt.New(t)})

			hdr, err := tr.Next()
			if !assert.NoError(err) {
				return
			}
			assert.Equal(name, hdr.Name)
			assert.Equal(int64(len(content)), hdr.Size)
			assert.Equal(int64(1361157466), hdr.ModTime.Unix())

			data, err := io.ReadAll(tr)
			assert.NoError(err)
			assert.Equal(content, data)

			hdr, err = tr.Next()
			if !assert.NoError(err) {
				return
			}
			assert.Equal("short", hdr.Name)
			assert.Equal(link, hdr.Linkname)

			_, err = tr.Next()
			assert.Equal(io.EOF, err)
		})
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestReaderSourceError(t *testing.T) {
	assert := assert.New(t)

	tr := NewReader(failingReader{}, Options{Log: slogt.New(t)})

	_, err := tr.Next()
	assert.ErrorContains(err, "disk on fire")
	assert.NotErrorIs(err, io.EOF)
}
