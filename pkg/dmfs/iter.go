package dmfs

import (
	"fmt"
	"iter"

	"github.com/samcharles93/dmfs/internal/bytebuf"
)

// ImageIter walks the objects of an image in order. It only reads the image and
// only ever moves its own cursor forward; to start over, build a new iterator.
//
// Iteration is lenient: a missing terminator, a bad object magic or a field that
// runs off the end of the image all end the sequence exactly like EndOfList does.
// Err tells the cases apart after the fact.
type ImageIter struct {
	buf     []byte
	off     uint64
	version uint32
	done    bool
	err     error
}

// FromSlice validates the image header and returns an iterator positioned at the
// first object. The iterator keeps a reference to blob, which must not be
// modified while the iterator or any object it produced is in use.
func FromSlice(blob []byte) (*ImageIter, error) {
	version, err := parseHeader(blob)
	if err != nil {
		return nil, err
	}
	return &ImageIter{
		buf:     blob,
		off:     headerSize,
		version: version,
	}, nil
}

func parseHeader(blob []byte) (uint32, error) {
	if len(blob) < headerSize {
		return 0, ErrMalformedHeader
	}
	magic, ok := bytebuf.U32At(blob, 0)
	if !ok {
		return 0, ErrMalformedHeader
	}
	if magic != ManifestMagic {
		return 0, fmt.Errorf("%w: got %#08x", ErrBadMagic, magic)
	}
	version, ok := bytebuf.U32At(blob, 4)
	if !ok {
		return 0, ErrMalformedHeader
	}
	if version > CurrentVersion {
		return 0, fmt.Errorf("%w: image is version %d, newest supported is %d", ErrVersionMismatch, version, CurrentVersion)
	}
	return version, nil
}

// Version returns the format version declared by the image header.
func (it *ImageIter) Version() uint32 { return it.version }

// Offset returns the cursor: the image offset of the next record to decode.
func (it *ImageIter) Offset() uint64 { return it.off }

// Err reports why iteration stopped. It is nil while iteration is still running
// and after a clean EndOfList; otherwise it is ErrTruncated or ErrCorruptObject.
func (it *ImageIter) Err() error { return it.err }

// Next decodes the next object. Once it returns false it always returns false.
//
// The returned object's content is a Region into the image; nothing is copied.
func (it *ImageIter) Next() (Object, bool) {
	if it.done {
		return Object{}, false
	}

	var (
		obj  Object
		next uint64
		err  error
		ok   bool
	)
	if it.version <= LegacyVersion {
		obj, next, ok, err = it.stepV1()
	} else {
		obj, next, ok, err = it.stepV2()
	}
	if !ok {
		it.done = true
		if err != nil {
			it.err = fmt.Errorf("%w at offset %d", err, it.off)
		}
		return Object{}, false
	}

	it.off = next
	return obj, true
}

// All returns a single-use sequence over the remaining objects.
func (it *ImageIter) All() iter.Seq[Object] {
	return func(yield func(Object) bool) {
		for {
			obj, ok := it.Next()
			if !ok || !yield(obj) {
				return
			}
		}
	}
}

// stepV2 decodes the record at the cursor. ok=false with a nil error is a clean end.
func (it *ImageIter) stepV2() (Object, uint64, bool, error) {
	b := it.buf
	off := it.off

	magic, ok := bytebuf.U32At(b, off)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}
	if magic != ObjectMagic {
		// v2 writes the terminator as a bare type code, so it shows up here.
		if magic == EndOfList.Code() {
			return Object{}, 0, false, nil
		}
		return Object{}, 0, false, ErrCorruptObject
	}

	code, ok := bytebuf.U32At(b, off+4)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}
	typ := ObjectTypeFromCode(code)
	if typ == EndOfList {
		return Object{}, 0, false, nil
	}

	size, ok := bytebuf.U64At(b, off+8)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}
	off += 16

	name, desc, off, ok := readNames(b, off)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}

	count, ok := bytebuf.U32At(b, off)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}
	off += 4

	var props []string
	if count > 0 {
		// Every property takes at least its terminator, so a count larger than
		// the remaining bytes cannot be satisfied.
		if uint64(count) > uint64(len(b))-min(off, uint64(len(b))) {
			return Object{}, 0, false, ErrTruncated
		}
		props = make([]string, 0, count)
		for range count {
			p, ok := bytebuf.StringAt(b, off)
			if !ok {
				return Object{}, 0, false, ErrTruncated
			}
			props = append(props, p)
			off += uint64(len(p)) + 1
		}
	}
	off = bytebuf.AlignUp8(off)

	region, ok := it.region(off, size)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}

	return Object{
		Type:        typ,
		Name:        name,
		Description: desc,
		Properties:  props,
		Content:     region,
	}, bytebuf.AlignUp8(region.End), true, nil
}

// stepV1 decodes a legacy record at the cursor.
func (it *ImageIter) stepV1() (Object, uint64, bool, error) {
	b := it.buf
	off := it.off

	code, ok := bytebuf.U32At(b, off)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}
	typ := ObjectTypeFromCode(code)
	if typ == EndOfList {
		return Object{}, 0, false, nil
	}

	size, ok := bytebuf.U32At(b, off+4)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}
	off += 8

	name, desc, off, ok := readNames(b, off)
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}

	region, ok := it.region(off, uint64(size))
	if !ok {
		return Object{}, 0, false, ErrTruncated
	}

	return Object{
		Type:        typ,
		Name:        name,
		Description: desc,
		Content:     region,
	}, bytebuf.AlignUp4(region.End), true, nil
}

// readNames reads the name and description strings and aligns the cursor to 4.
func readNames(b []byte, off uint64) (string, string, uint64, bool) {
	name, ok := bytebuf.StringAt(b, off)
	if !ok {
		return "", "", 0, false
	}
	off += uint64(len(name)) + 1

	desc, ok := bytebuf.StringAt(b, off)
	if !ok {
		return "", "", 0, false
	}
	off += uint64(len(desc)) + 1

	return name, desc, bytebuf.AlignUp4(off), true
}

func (it *ImageIter) region(start, size uint64) (Region, bool) {
	end := start + size
	if end < start || !bytebuf.Range(it.buf, start, end) {
		return Region{}, false
	}
	return Region{Start: start, End: end, src: it.buf}, true
}

// Collect validates blob and decodes every object in it. Unlike plain iteration
// it reports a truncated or corrupt object list as an error, alongside the
// objects decoded before the damage.
func Collect(blob []byte) ([]Object, error) {
	it, err := FromSlice(blob)
	if err != nil {
		return nil, err
	}
	var out []Object
	for obj := range it.All() {
		out = append(out, obj)
	}
	return out, it.Err()
}
