package block

import (
	"bytes"
	"strconv"
)

// parseString returns the bytes of b up to the first NUL.
func parseString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// formatString copies s into b. The caller checks that s fits.
func formatString(b []byte, s string) {
	n := copy(b, s)
	if n < len(b) {
		b[n] = 0
	}
}

// parseOctal parses leniently: leading spaces and NULs are skipped and
// parsing stops at the first byte that is not an octal digit. It never fails.
func parseOctal(b []byte) int64 {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == 0) {
		i++
	}
	var x int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '7' {
			break
		}
		x = x<<3 | int64(c-'0')
	}
	return x
}

// parseNumeric parses either octal or GNU base-256 encoding. Values that do
// not fit an int64 yield ErrTooLarge.
func parseNumeric(b []byte) (int64, error) {
	if len(b) == 0 || b[0]&0x80 == 0 {
		return parseOctal(b), nil
	}

	// Base-256 is two's complement, the sign taken from bit 6 of the first
	// byte once the 0x80 marker is masked off.
	var inv byte
	if b[0]&0x40 != 0 {
		inv = 0xff
	}
	var x uint64
	for i, c := range b {
		c ^= inv
		if i == 0 {
			c &= 0x7f
		}
		if x>>56 > 0 {
			return 0, ErrTooLarge
		}
		x = x<<8 | uint64(c)
	}
	if x>>63 > 0 {
		return 0, ErrTooLarge
	}
	if inv == 0xff {
		return ^int64(x), nil
	}
	return int64(x), nil
}

func fitsOctal(n int, x int64) bool {
	octBits := uint(n-1) * 3
	return x >= 0 && (n >= 22 || x < 1<<octBits)
}

func fitsBase256(n int, x int64) bool {
	binBits := uint(n-1) * 8
	return n >= 9 || (x >= -1<<binBits && x < 1<<binBits)
}

// formatOctal writes x as zero-padded octal digits followed by a NUL.
func formatOctal(b []byte, x int64) bool {
	if !fitsOctal(len(b), x) {
		return false
	}
	s := strconv.FormatInt(x, 8)
	for len(s) < len(b)-1 {
		s = "0" + s
	}
	copy(b, s)
	b[len(b)-1] = 0
	return true
}

func formatBase256(b []byte, x int64) bool {
	if !fitsBase256(len(b), x) {
		return false
	}
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(x)
		x >>= 8
	}
	b[0] |= 0x80
	return true
}

// formatNumeric prefers octal and falls back to base-256, which every
// reader of GNU archives understands.
func formatNumeric(b []byte, x int64) bool {
	return formatOctal(b, x) || formatBase256(b, x)
}
