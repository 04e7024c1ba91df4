package dmfs

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Image is a manifest image held in memory, either mapped from a file or read
// into a private buffer.
type Image struct {
	Data    []byte
	Version uint32
	mmapped bool
}

// Open maps an image file read-only and validates its header.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned image must be closed to release any mapping; Region content
// decoded from it must not be used after that.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrMalformedHeader
	}
	size := int(size64)
	if size < headerSize {
		return nil, ErrMalformedHeader
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		img, parseErr := newImage(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return img, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return newImage(data, false)
}

// OpenReaderAt loads and validates an image from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*Image, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrMalformedHeader
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return newImage(data, false)
}

// FromBytes wraps an image already in memory. blob is not copied.
func FromBytes(blob []byte) (*Image, error) {
	return newImage(blob, false)
}

func newImage(data []byte, mmapped bool) (*Image, error) {
	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, Version: version, mmapped: mmapped}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Iter returns a fresh iterator over the image.
func (img *Image) Iter() *ImageIter {
	return &ImageIter{buf: img.Data, off: headerSize, version: img.Version}
}

// Objects decodes every object, reporting a damaged object list as an error.
func (img *Image) Objects() ([]Object, error) {
	return Collect(img.Data)
}

// Size is the image length in bytes.
func (img *Image) Size() int { return len(img.Data) }

// Close releases the mapping, if any.
func (img *Image) Close() error {
	if img == nil || img.Data == nil {
		return nil
	}
	var err error
	if img.mmapped {
		err = unix.Munmap(img.Data)
	}
	img.Data = nil
	img.mmapped = false
	return err
}
