package dmfs

import "github.com/samcharles93/dmfs/internal/bytebuf"

// encodeObjectV2 writes one v2 record. The object has already been validated.
func encodeObjectV2(b *bytebuf.Buffer, o *Object) {
	b.PutU32(ObjectMagic)
	b.PutU32(o.Type.Code())
	b.PutU64(o.ContentLen())
	b.PutString(o.Name)
	b.PutString(o.Description)
	b.PadTo4()

	b.PutU32(uint32(len(o.Properties)))
	for _, p := range o.Properties {
		b.PutString(p)
	}
	b.PadTo8()

	b.PutBytes(o.Bytes())
	b.PadTo8()
}

// encodeObjectV1 writes one legacy record: no object magic, u32 length, no properties.
func encodeObjectV1(b *bytebuf.Buffer, o *Object) {
	b.PutU32(o.Type.Code())
	b.PutU32(uint32(o.ContentLen()))
	b.PutString(o.Name)
	b.PutString(o.Description)
	b.PadTo4()
	b.PutBytes(o.Bytes())
	b.PadTo4()
}
