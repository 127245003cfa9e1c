package block

// Size is the size of each block in a tar stream.
const Size = 512

// Field widths of the USTAR/GNU header layout.
const (
	NameSize   = 100
	PrefixSize = 155
)

// Type flags stored at offset 156 of a header block.
const (
	TypeReg           byte = '0'
	TypeRegA          byte = '\x00'
	TypeLink          byte = '1'
	TypeSymlink       byte = '2'
	TypeChar          byte = '3'
	TypeBlock         byte = '4'
	TypeDir           byte = '5'
	TypeFifo          byte = '6'
	TypeCont          byte = '7'
	TypeXHeader       byte = 'x'
	TypeXGlobalHeader byte = 'g'
	TypeGNULongName   byte = 'L'
	TypeGNULongLink   byte = 'K'
)

// Magic and version values.
const (
	magicGNU, versionGNU     = "ustar ", " \x00"
	magicUSTAR, versionUSTAR = "ustar\x00", "00"
)

// IsExtension reports whether flag marks a header whose payload extends the
// header that follows it.
func IsExtension(flag byte) bool {
	switch flag {
	case TypeXHeader, TypeXGlobalHeader, TypeGNULongName, TypeGNULongLink:
		return true
	}
	return false
}

// IsHeaderOnly reports whether entries of the given type carry no content
// blocks, whatever their size field says.
func IsHeaderOnly(flag byte) bool {
	switch flag {
	case TypeLink, TypeSymlink, TypeChar, TypeBlock, TypeDir, TypeFifo:
		return true
	}
	return false
}

var zeroBlock Block

// Block is one 512-byte unit of archive I/O.
type Block [Size]byte

func (b *Block) Name() []byte     { return b[0:][:100] }
func (b *Block) Mode() []byte     { return b[100:][:8] }
func (b *Block) UID() []byte      { return b[108:][:8] }
func (b *Block) GID() []byte      { return b[116:][:8] }
func (b *Block) Size() []byte     { return b[124:][:12] }
func (b *Block) ModTime() []byte  { return b[136:][:12] }
func (b *Block) Chksum() []byte   { return b[148:][:8] }
func (b *Block) TypeFlag() []byte { return b[156:][:1] }
func (b *Block) LinkName() []byte { return b[157:][:100] }
func (b *Block) Magic() []byte    { return b[257:][:6] }
func (b *Block) Version() []byte  { return b[263:][:2] }
func (b *Block) Uname() []byte    { return b[265:][:32] }
func (b *Block) Gname() []byte    { return b[297:][:32] }
func (b *Block) DevMajor() []byte { return b[329:][:8] }
func (b *Block) DevMinor() []byte { return b[337:][:8] }
func (b *Block) Prefix() []byte   { return b[345:][:155] }

// IsZero reports whether the block is an end-of-archive marker. Like GNU
// tar, only the first byte of the name field is inspected.
func (b *Block) IsZero() bool {
	return b[0] == 0
}

// Reset clears the block with all zeros.
func (b *Block) Reset() {
	*b = zeroBlock
}

// ComputeChecksum computes the checksum for the header block.
// POSIX specifies a sum of the unsigned byte values, but the Sun tar used
// signed byte values. Both are returned.
func (b *Block) ComputeChecksum() (unsigned, signed int64) {
	for i, c := range b {
		if 148 <= i && i < 156 {
			c = ' ' // Treat the checksum field itself as all spaces.
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return unsigned, signed
}

// SetChecksum stores the checksum of the block. It must run after every
// other field has its final value.
func (b *Block) SetChecksum() {
	sum, _ := b.ComputeChecksum() // Possible values are 256..128776
	field := b.Chksum()
	formatOctal(field[:7], sum) // Never fails since 128776 < 262143
	field[7] = ' '
}

// ChecksumOK reports whether the stored checksum matches the block. Only the
// leading octal digits of the field count; the NUL and space after them are
// not checked.
func (b *Block) ChecksumOK() bool {
	stored := parseOctal(b.Chksum())
	unsigned, signed := b.ComputeChecksum()
	return stored == unsigned || stored == signed
}

// Count returns the number of blocks needed to hold size bytes. It returns
// ErrTooLarge rather than wrapping when the count cannot be addressed.
func Count(size int64) (int, error) {
	if size < 0 {
		return 0, ErrTooLarge
	}
	n := size / Size
	if size%Size != 0 {
		n++
	}
	if uint64(n) > uint64(maxInt/Size) {
		return 0, ErrTooLarge
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

// Padding computes the number of bytes needed to pad offset up to the
// nearest block edge where 0 <= n < Size.
func Padding(offset int64) int64 {
	return -offset & (Size - 1)
}
