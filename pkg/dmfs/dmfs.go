// Package dmfs implements the DMFS manifest image format.
//
// A manifest image is a flat, read-only blob bundling named, typed objects (boot
// messages, system services, guest OS images) for a loader that has no filesystem
// underneath it. Images are produced once by a Manifest and consumed lazily by an
// ImageIter, which hands out Region-backed objects that point into the source
// buffer rather than copying their contents.
//
// Version 2 layout (all integers in the host's native byte order):
//
//	u32 ManifestMagic
//	u32 version (2)
//	per object:
//	  u32 ObjectMagic
//	  u32 object type
//	  u64 content length
//	  name\0
//	  description\0
//	  pad to 4
//	  u32 property count N
//	  N x property\0
//	  pad to 8
//	  content
//	  pad to 8
//	u32 EndOfList (0)
//
// Version 1 images have no object magic, a u32 content length, no properties and
// pad everything to 4 bytes. They can still be read and, for compatibility, written.
package dmfs

// Format constants must never change.
const (
	// ManifestMagic opens every image.
	ManifestMagic uint32 = 0xD105C001

	// ObjectMagic opens every v2 object record.
	ObjectMagic uint32 = 0xD1015D4D

	// CurrentVersion is the newest layout this package reads and the one it writes by default.
	CurrentVersion uint32 = 2

	// LegacyVersion is the original layout without object magic or properties.
	LegacyVersion uint32 = 1

	headerSize = 8
)
