// Package bytebuf provides the primitive byte operations used by the DMFS codec:
// native-order integer appends and reads, null-terminated strings and alignment.
//
// Reads never fail loudly. Any read that would run past the end of the slice
// reports ok=false instead, leaving the caller to decide what that means.
package bytebuf

import (
	"bytes"
	"encoding/binary"
)

// order is the byte order used for every integer. DMFS images are not portable
// across endianness.
var order = binary.NativeEndian

// Buffer is a growable write buffer.
type Buffer struct {
	b []byte
}

// New returns a buffer with capacity for at least n bytes.
func New(n int) *Buffer {
	return &Buffer{b: make([]byte, 0, n)}
}

// Len returns the number of bytes written so far.
func (w *Buffer) Len() int { return len(w.b) }

// Bytes returns the written bytes. The slice aliases the buffer.
func (w *Buffer) Bytes() []byte { return w.b }

func (w *Buffer) PutU8(v uint8) {
	w.b = append(w.b, v)
}

func (w *Buffer) PutU32(v uint32) {
	w.b = order.AppendUint32(w.b, v)
}

func (w *Buffer) PutU64(v uint64) {
	w.b = order.AppendUint64(w.b, v)
}

// PutBytes appends p verbatim.
func (w *Buffer) PutBytes(p []byte) {
	w.b = append(w.b, p...)
}

// PutString appends s followed by a single zero byte.
func (w *Buffer) PutString(s string) {
	w.b = append(w.b, s...)
	w.b = append(w.b, 0)
}

// PadTo4 appends zero bytes until the length is a multiple of 4.
func (w *Buffer) PadTo4() { w.padTo(4) }

// PadTo8 appends zero bytes until the length is a multiple of 8.
func (w *Buffer) PadTo8() { w.padTo(8) }

func (w *Buffer) padTo(n uint64) {
	cur := uint64(len(w.b))
	for pad := AlignUp(cur, n) - cur; pad > 0; pad-- {
		w.b = append(w.b, 0)
	}
}

// AlignUp returns the smallest multiple of n that is >= off. n must be a power of two.
func AlignUp(off, n uint64) uint64 {
	if n <= 1 {
		return off
	}
	return (off + n - 1) &^ (n - 1)
}

// AlignUp4 returns the next 4-byte aligned offset >= off.
func AlignUp4(off uint64) uint64 { return AlignUp(off, 4) }

// AlignUp8 returns the next 8-byte aligned offset >= off.
func AlignUp8(off uint64) uint64 { return AlignUp(off, 8) }

// span returns b[off:off+n] if the whole range lies inside b.
func span(b []byte, off, n uint64) ([]byte, bool) {
	size := uint64(len(b))
	if off > size || n > size-off {
		return nil, false
	}
	return b[off : off+n], true
}

func U8At(b []byte, off uint64) (uint8, bool) {
	p, ok := span(b, off, 1)
	if !ok {
		return 0, false
	}
	return p[0], true
}

func U32At(b []byte, off uint64) (uint32, bool) {
	p, ok := span(b, off, 4)
	if !ok {
		return 0, false
	}
	return order.Uint32(p), true
}

func U64At(b []byte, off uint64) (uint64, bool) {
	p, ok := span(b, off, 8)
	if !ok {
		return 0, false
	}
	return order.Uint64(p), true
}

// StringAt reads a null-terminated string starting at off. The terminator is not
// part of the result; callers advance by len(s)+1.
func StringAt(b []byte, off uint64) (string, bool) {
	if off >= uint64(len(b)) {
		return "", false
	}
	rest := b[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", false
	}
	return string(rest[:end]), true
}

// Range reports whether [start, end) lies inside b.
func Range(b []byte, start, end uint64) bool {
	return start <= end && end <= uint64(len(b))
}
