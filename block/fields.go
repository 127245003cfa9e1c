package block

import (
	"fmt"
	"strconv"
)

// Format identifies the magic a header block carries.
type Format int

const (
	FormatUnknown Format = iota
	FormatV7
	FormatUSTAR
	FormatGNU
)

var formatNames = map[Format]string{
	FormatUnknown: "<unknown>", FormatV7: "V7", FormatUSTAR: "USTAR", FormatGNU: "GNU",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

// Format guesses the header format from its magic and version values.
func (b *Block) Format() Format {
	magic := string(b.Magic())
	version := string(b.Version())
	switch {
	case magic == magicUSTAR:
		return FormatUSTAR
	case magic == magicGNU && version == versionGNU:
		return FormatGNU
	default:
		return FormatV7
	}
}

// Fields is the fixed-layout view of one header block.
type Fields struct {
	Name     string
	Mode     int64
	UID      int64
	GID      int64
	Size     int64
	ModTime  int64
	Checksum int64
	TypeFlag byte
	LinkName string
	Uname    string
	Gname    string
	DevMajor int64
	DevMinor int64
	Prefix   string
	Format   Format
}

// Path joins the USTAR prefix and name fields.
func (f Fields) Path() string {
	if f.Prefix == "" {
		return f.Name
	}
	return f.Prefix + "/" + f.Name
}

// Checks selects which validations Decode skips. The zero value runs every
// check, so a caller has to opt out of each one explicitly.
type Checks struct {
	SkipMagic    bool
	SkipVersion  bool
	SkipChecksum bool
}

// Decode validates b and returns its fields. A failed check is reported as a
// *HeaderError.
func Decode(b *Block, c Checks) (Fields, error) {
	magic := b.Magic()
	if !c.SkipMagic && string(magic[:5]) != magicUSTAR[:5] {
		return Fields{}, &HeaderError{Check: CheckMagic, Value: string(magic)}
	}

	if !c.SkipVersion {
		want := versionUSTAR
		if string(magic) == magicGNU {
			want = versionGNU
		}
		if version := string(b.Version()); version != want {
			return Fields{}, &HeaderError{Check: CheckVersion, Value: version}
		}
	}

	if !c.SkipChecksum && !b.ChecksumOK() {
		return Fields{}, &HeaderError{Check: CheckChecksum, Value: string(b.Chksum())}
	}

	size, err := parseNumeric(b.Size())
	if err != nil {
		return Fields{}, fmt.Errorf("failed to parse size: %w", err)
	}
	if size < 0 {
		return Fields{}, &HeaderError{Check: CheckSize, Value: strconv.FormatInt(size, 10)}
	}

	f := Fields{
		Name:     parseString(b.Name()),
		Mode:     parseLenient(b.Mode()),
		UID:      parseLenient(b.UID()),
		GID:      parseLenient(b.GID()),
		Size:     size,
		ModTime:  parseLenient(b.ModTime()),
		Checksum: parseOctal(b.Chksum()),
		TypeFlag: b.TypeFlag()[0],
		LinkName: parseString(b.LinkName()),
		Format:   b.Format(),
	}

	if f.Format != FormatV7 {
		f.Uname = parseString(b.Uname())
		f.Gname = parseString(b.Gname())
		f.DevMajor = parseLenient(b.DevMajor())
		f.DevMinor = parseLenient(b.DevMinor())
	}

	// GNU stores access and change times where USTAR keeps the prefix.
	if f.Format == FormatUSTAR {
		f.Prefix = parseString(b.Prefix())
	}

	return f, nil
}

// parseLenient parses auxiliary numeric fields, which never fail a read.
func parseLenient(b []byte) int64 {
	x, err := parseNumeric(b)
	if err != nil {
		return 0
	}
	return x
}

type numericField struct {
	name  string
	field []byte
	value int64
}

// Encode serializes f into a new block. The checksum is computed last, after
// every other field has its final value.
func Encode(f Fields) (*Block, error) {
	if len(f.Name) > NameSize {
		return nil, fmt.Errorf("%w: name %q", ErrFieldTooLong, f.Name)
	}
	if len(f.LinkName) > NameSize {
		return nil, fmt.Errorf("%w: linkname %q", ErrFieldTooLong, f.LinkName)
	}
	if len(f.Prefix) > PrefixSize {
		return nil, fmt.Errorf("%w: prefix %q", ErrFieldTooLong, f.Prefix)
	}
	if len(f.Uname) > 32 || len(f.Gname) > 32 {
		return nil, fmt.Errorf("%w: uname %q or gname %q", ErrFieldTooLong, f.Uname, f.Gname)
	}

	b := new(Block)
	formatString(b.Name(), f.Name)
	formatString(b.LinkName(), f.LinkName)
	b.TypeFlag()[0] = f.TypeFlag

	numeric := []numericField{
		{"mode", b.Mode(), f.Mode},
		{"uid", b.UID(), f.UID},
		{"gid", b.GID(), f.GID},
		{"size", b.Size(), f.Size},
		{"mtime", b.ModTime(), f.ModTime},
	}

	switch f.Format {
	case FormatV7:
		// No magic, and nothing past the link name.
	case FormatGNU:
		copy(b.Magic(), magicGNU)
		copy(b.Version(), versionGNU)
	default:
		copy(b.Magic(), magicUSTAR)
		copy(b.Version(), versionUSTAR)
		formatString(b.Prefix(), f.Prefix)
	}

	if f.Format != FormatV7 {
		formatString(b.Uname(), f.Uname)
		formatString(b.Gname(), f.Gname)
		numeric = append(numeric,
			numericField{"devmajor", b.DevMajor(), f.DevMajor},
			numericField{"devminor", b.DevMinor(), f.DevMinor},
		)
	}

	for _, n := range numeric {
		if !formatNumeric(n.field, n.value) {
			return nil, fmt.Errorf("failed to encode %s %d: %w", n.name, n.value, ErrTooLarge)
		}
	}

	b.SetChecksum()

	return b, nil
}
