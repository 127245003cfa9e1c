// Package pax parses and formats POSIX.1-2001 extended header records.
//
// A record has the form "<len> <key>=<value>\n" where len counts the whole
// record, its own digits and the trailing newline included.
package pax

import (
	"bytes"
	"strconv"
)

// Keys retained by Parse. Every other keyword is validated and dropped.
const (
	Path     = "path"
	Linkpath = "linkpath"
)

var known = map[string]bool{
	Path:     true,
	Linkpath: true,
}

// Records holds the recognized records of one extended header.
type Records map[string]string

// Path returns the path override, if any.
func (r Records) Path() (string, bool) {
	v, ok := r[Path]
	return v, ok
}

// Linkpath returns the link target override, if any.
func (r Records) Linkpath() (string, bool) {
	v, ok := r[Linkpath]
	return v, ok
}

// Parse decodes the payload of an extended header. It never fails: a record
// with a bad length stops parsing and keeps what was collected so far, a
// record without '=' or with an empty value is skipped. Later records win
// over earlier ones with the same key.
func Parse(buf []byte) Records {
	recs := make(Records)

	for p := 0; p < len(buf) && buf[p] != 0; {
		rest := buf[p:]

		digits := 0
		for digits < len(rest) && '0' <= rest[digits] && rest[digits] <= '9' {
			digits++
		}
		if digits == 0 || digits == len(rest) || rest[digits] != ' ' {
			break
		}
		n, err := strconv.ParseUint(string(rest[:digits]), 10, 64)
		if err != nil || n == 0 || n > uint64(len(rest)) {
			break
		}
		rec := rest[:n]

		// The key starts after the space and the value ends before the
		// record's final byte, which should be the newline.
		keyStart := digits + 1
		if keyStart >= len(rec) {
			p += len(rec)
			continue
		}
		eq := bytes.IndexByte(rec[keyStart:], '=')
		if eq < 0 {
			p += len(rec)
			continue
		}
		valueStart := keyStart + eq + 1
		valueEnd := len(rec) - 1
		if valueStart >= valueEnd {
			p += len(rec)
			continue
		}

		if key := string(rec[keyStart : keyStart+eq]); known[key] {
			recs[key] = string(rec[valueStart:valueEnd])
		}

		p += len(rec)
	}

	return recs
}

// AppendRecord appends one formatted record to dst.
func AppendRecord(dst []byte, key, value string) []byte {
	const padding = 3 // Extra padding for ' ', '=', and '\n'
	size := len(key) + len(value) + padding
	size += len(strconv.Itoa(size))

	// The length field counts itself, so adding its digits may push the
	// total over a power of ten.
	if n := len(strconv.Itoa(size)) + len(key) + len(value) + padding; n != size {
		size = n
	}

	dst = strconv.AppendInt(dst, int64(size), 10)
	dst = append(dst, ' ')
	dst = append(dst, key...)
	dst = append(dst, '=')
	dst = append(dst, value...)
	return append(dst, '\n')
}
