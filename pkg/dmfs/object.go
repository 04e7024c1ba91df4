package dmfs

import "slices"

// Object is one record of a manifest.
type Object struct {
	Type ObjectType
	// Name identifies the object and must be unique within a manifest.
	Name        string
	Description string
	Properties  []string
	Content     Content
}

// NewObject returns an object owning data.
func NewObject(typ ObjectType, name, description string, data []byte, properties ...string) Object {
	return Object{
		Type:        typ,
		Name:        name,
		Description: description,
		Properties:  properties,
		Content:     Owned(data),
	}
}

// ContentLen is the payload size, derived from the content source.
func (o Object) ContentLen() uint64 {
	if o.Content == nil {
		return 0
	}
	return o.Content.Len()
}

// Bytes returns the payload regardless of how it is held.
func (o Object) Bytes() []byte {
	if o.Content == nil {
		return nil
	}
	return o.Content.Bytes()
}

// Detach returns a copy of o that owns its content, so a decoded object can be
// added to a new manifest.
func (o Object) Detach() Object {
	out := o
	out.Properties = slices.Clone(o.Properties)
	out.Content = Owned(slices.Clone(o.Bytes()))
	return out
}
