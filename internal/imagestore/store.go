package imagestore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/samcharles93/dmfs/pkg/dmfs"
)

var ErrObjectNotFound = errors.New("imagestore: object not found")

// Store is a decoded image with its objects indexed by name.
//
// Unlike a bare dmfs.ImageIter, a Store is strict: an image whose object list is
// truncated or corrupt fails to open.
type Store struct {
	img     *dmfs.Image
	objects []dmfs.Object
	byName  map[string]int

	mu      sync.Mutex
	digests map[string]string
}

// ObjectInfo is the metadata of one object.
type ObjectInfo struct {
	Index       int             `json:"index"`
	Type        dmfs.ObjectType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Properties  []string        `json:"properties"`
	Offset      uint64          `json:"offset"`
	Size        uint64          `json:"size"`
}

// Open maps the image at path and indexes it.
func Open(path string) (*Store, error) {
	img, err := dmfs.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := newStore(img)
	if err != nil {
		_ = img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// FromBytes indexes an image already in memory. blob is not copied.
func FromBytes(blob []byte) (*Store, error) {
	img, err := dmfs.FromBytes(blob)
	if err != nil {
		return nil, err
	}
	return newStore(img)
}

func newStore(img *dmfs.Image) (*Store, error) {
	objs, err := img.Objects()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(objs))
	for i, o := range objs {
		if _, dup := byName[o.Name]; dup {
			return nil, fmt.Errorf("%w: %q", dmfs.ErrDuplicateName, o.Name)
		}
		byName[o.Name] = i
	}
	return &Store{
		img:     img,
		objects: objs,
		byName:  byName,
		digests: make(map[string]string),
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.img == nil {
		return nil
	}
	err := s.img.Close()
	s.img = nil
	s.objects = nil
	s.byName = nil
	return err
}

// Version is the format version of the underlying image.
func (s *Store) Version() uint32 { return s.img.Version }

// Size is the image length in bytes.
func (s *Store) Size() int { return s.img.Size() }

func (s *Store) Len() int { return len(s.objects) }

// Objects returns metadata for every object in image order.
func (s *Store) Objects() []ObjectInfo {
	out := make([]ObjectInfo, len(s.objects))
	for i := range s.objects {
		out[i] = s.info(i)
	}
	return out
}

// ByType returns metadata for the objects of the given type, in image order.
func (s *Store) ByType(t dmfs.ObjectType) []ObjectInfo {
	var out []ObjectInfo
	for i := range s.objects {
		if s.objects[i].Type == t {
			out = append(out, s.info(i))
		}
	}
	return out
}

func (s *Store) Lookup(name string) (ObjectInfo, error) {
	idx, ok := s.byName[name]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return s.info(idx), nil
}

// Object returns the decoded object. Its content borrows the image.
func (s *Store) Object(name string) (dmfs.Object, error) {
	idx, ok := s.byName[name]
	if !ok {
		return dmfs.Object{}, ErrObjectNotFound
	}
	return s.objects[idx], nil
}

// Content returns a zero-copy view of the object's payload.
// The caller must not retain this slice after Close.
func (s *Store) Content(name string) ([]byte, error) {
	obj, err := s.Object(name)
	if err != nil {
		return nil, err
	}
	return obj.Bytes(), nil
}

// Digest returns the hex BLAKE3-256 digest of the object's payload.
func (s *Store) Digest(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.digests[name]; ok {
		return d, nil
	}
	obj, err := s.Object(name)
	if err != nil {
		return "", err
	}
	d := DigestBytes(obj.Bytes())
	s.digests[name] = d
	return d, nil
}

// DigestBytes returns the hex BLAKE3-256 digest of data.
func DigestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) info(i int) ObjectInfo {
	o := s.objects[i]
	var off uint64
	if r, ok := o.Content.(dmfs.Region); ok {
		off = r.Start
	}
	props := o.Properties
	if props == nil {
		props = []string{}
	}
	return ObjectInfo{
		Index:       i,
		Type:        o.Type,
		Name:        o.Name,
		Description: o.Description,
		Properties:  props,
		Offset:      off,
		Size:        o.ContentLen(),
	}
}
