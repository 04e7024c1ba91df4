package dmfs

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/samcharles93/dmfs/internal/bytebuf"
)

// Manifest is an ordered set of objects waiting to be encoded.
//
// Add does not validate anything; names, types and content are checked when the
// image is produced.
type Manifest struct {
	objects []Object
}

// New returns an empty manifest. Do not add an EndOfList object: the terminator
// is written automatically.
func New() *Manifest {
	return &Manifest{}
}

// Add appends obj. Objects are encoded in the order they were added.
func (m *Manifest) Add(obj Object) {
	m.objects = append(m.objects, obj)
}

// Objects returns the objects in insertion order. The slice aliases the manifest.
func (m *Manifest) Objects() []Object { return m.objects }

func (m *Manifest) Len() int { return len(m.objects) }

// ToImage encodes the manifest using the current format version.
func (m *Manifest) ToImage() ([]byte, error) {
	return m.ToImageVersion(CurrentVersion)
}

// ToImageVersion encodes the manifest using the given format version. On error
// no bytes are returned.
func (m *Manifest) ToImageVersion(version uint32) ([]byte, error) {
	if err := m.validate(version); err != nil {
		return nil, err
	}

	b := bytebuf.New(m.sizeHint())
	b.PutU32(ManifestMagic)
	b.PutU32(version)

	for i := range m.objects {
		switch version {
		case LegacyVersion:
			encodeObjectV1(b, &m.objects[i])
		default:
			encodeObjectV2(b, &m.objects[i])
		}
	}

	b.PutU32(EndOfList.Code())
	return b.Bytes(), nil
}

// WriteTo encodes the manifest with the current version and writes it to w.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	img, err := m.ToImage()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(img)
	return int64(n), err
}

func (m *Manifest) validate(version uint32) error {
	if version != CurrentVersion && version != LegacyVersion {
		return fmt.Errorf("%w: cannot write version %d", ErrVersionMismatch, version)
	}

	seen := make(map[string]int, len(m.objects))
	for i := range m.objects {
		o := &m.objects[i]
		if err := validateObject(o, version); err != nil {
			return fmt.Errorf("dmfs: object %d (%q): %w", i, o.Name, err)
		}
		if prev, ok := seen[o.Name]; ok {
			return fmt.Errorf("dmfs: object %d (%q): %w (first used by object %d)", i, o.Name, ErrDuplicateName, prev)
		}
		seen[o.Name] = i
	}
	return nil
}

func validateObject(o *Object, version uint32) error {
	switch c := o.Content.(type) {
	case nil, Owned:
	case Region:
		return ErrCantUseRegionHere
	default:
		return fmt.Errorf("dmfs: unsupported content type %T", c)
	}

	if o.Type == EndOfList {
		return ErrReservedType
	}
	if o.Name == "" {
		return ErrEmptyName
	}
	if strings.IndexByte(o.Name, 0) >= 0 || strings.IndexByte(o.Description, 0) >= 0 {
		return ErrInvalidString
	}
	for _, p := range o.Properties {
		if strings.IndexByte(p, 0) >= 0 {
			return ErrInvalidString
		}
	}

	if version == LegacyVersion {
		if len(o.Properties) > 0 {
			return ErrLegacyProperties
		}
		if o.ContentLen() > math.MaxUint32 {
			return ErrContentTooLarge
		}
	} else if uint64(len(o.Properties)) > math.MaxUint32 {
		return ErrContentTooLarge
	}
	return nil
}

// sizeHint over-estimates the encoded size so the buffer grows at most once.
func (m *Manifest) sizeHint() int {
	n := headerSize + 4
	for i := range m.objects {
		o := &m.objects[i]
		n += 4 + 4 + 8 + len(o.Name) + len(o.Description) + 2 + 4 + 4 + 8 + 8
		for _, p := range o.Properties {
			n += len(p) + 1
		}
		n += int(o.ContentLen())
	}
	return n
}
