package tarhdr

import (
	"strings"
	"time"

	"github.com/testlabtools/tarhdr/block"
)

// Type flags, see package block.
const (
	TypeReg           = block.TypeReg
	TypeRegA          = block.TypeRegA
	TypeLink          = block.TypeLink
	TypeSymlink       = block.TypeSymlink
	TypeChar          = block.TypeChar
	TypeBlock         = block.TypeBlock
	TypeDir           = block.TypeDir
	TypeFifo          = block.TypeFifo
	TypeCont          = block.TypeCont
	TypeXHeader       = block.TypeXHeader
	TypeXGlobalHeader = block.TypeXGlobalHeader
	TypeGNULongName   = block.TypeGNULongName
	TypeGNULongLink   = block.TypeGNULongLink
)

// Names of the synthetic headers the Writer emits ahead of a real header.
const (
	longLinkName  = "././@LongLink"
	paxHeaderName = "././@PaxHeader"
)

// Header is the fully resolved description of one archive entry, with every
// GNU and PAX extension merged in.
type Header struct {
	Typeflag byte

	// Name and Linkname have no length limit. On read they may come from a
	// GNU long-name/long-link record or a PAX path/linkpath record.
	Name     string
	Linkname string

	Size     int64
	Mode     int64
	Uid      int
	Gid      int
	Uname    string
	Gname    string
	ModTime  time.Time
	Devmajor int64
	Devminor int64

	// Format is the format of the base header block. It is ignored by the
	// Writer, which follows its Options.
	Format block.Format
}

func newHeader(f block.Fields) *Header {
	return &Header{
		Typeflag: f.TypeFlag,
		Name:     f.Path(),
		Linkname: f.LinkName,
		Size:     f.Size,
		Mode:     f.Mode,
		Uid:      int(f.UID),
		Gid:      int(f.GID),
		Uname:    f.Uname,
		Gname:    f.Gname,
		ModTime:  time.Unix(f.ModTime, 0),
		Devmajor: f.DevMajor,
		Devminor: f.DevMinor,
		Format:   f.Format,
	}
}

// fields returns the fixed-width view of h. Name and link are not truncated
// here; the Writer decides how over-long values are carried.
func (h *Header) fields(format block.Format) block.Fields {
	var mtime int64
	if !h.ModTime.IsZero() {
		mtime = h.ModTime.Unix()
	}
	return block.Fields{
		Name:     h.Name,
		Mode:     h.Mode,
		UID:      int64(h.Uid),
		GID:      int64(h.Gid),
		Size:     h.Size,
		ModTime:  mtime,
		TypeFlag: h.Typeflag,
		LinkName: h.Linkname,
		Uname:    h.Uname,
		Gname:    h.Gname,
		DevMajor: h.Devmajor,
		DevMinor: h.Devminor,
		Format:   format,
	}
}

// hasContent reports whether data blocks follow the header.
func (h *Header) hasContent() bool {
	return h.Size > 0 && !block.IsHeaderOnly(h.Typeflag)
}

// splitUSTARPath splits a path into a prefix and suffix that fit the USTAR
// prefix and name fields.
func splitUSTARPath(name string) (prefix, suffix string, ok bool) {
	length := len(name)
	if length <= block.NameSize {
		return "", "", false
	} else if length > block.PrefixSize+1 {
		length = block.PrefixSize + 1
	} else if name[length-1] == '/' {
		length--
	}

	i := strings.LastIndex(name[:length], "/")
	nlen := len(name) - i - 1 // nlen is length of suffix
	plen := i                 // plen is length of prefix
	if i <= 0 || nlen > block.NameSize || nlen == 0 || plen > block.PrefixSize {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
