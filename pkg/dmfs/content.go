package dmfs

// Content is the payload of an object. It is either Owned bytes, which the encoder
// accepts, or a Region borrowed from a decoded image, which it rejects.
type Content interface {
	// Len is the payload size in bytes.
	Len() uint64
	// Bytes returns the payload. For a Region this is a view into the source image.
	Bytes() []byte

	isContent()
}

// Owned is a self-contained payload.
type Owned []byte

func (o Owned) Len() uint64   { return uint64(len(o)) }
func (o Owned) Bytes() []byte { return o }
func (Owned) isContent()      {}

// Region is the half-open span [Start, End) of the image an object was decoded
// from. The image must outlive the region and must not be modified while the
// region is in use. Regions from an mmapped Image are invalid after Image.Close.
type Region struct {
	Start uint64
	End   uint64

	src []byte
}

func (r Region) Len() uint64 { return r.End - r.Start }

// Bytes returns a zero-copy view of the region. It returns nil if the region no
// longer fits its source.
func (r Region) Bytes() []byte {
	if r.Start > r.End || r.End > uint64(len(r.src)) {
		return nil
	}
	return r.src[r.Start:r.End:r.End]
}

func (Region) isContent() {}
