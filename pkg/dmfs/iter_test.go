package dmfs

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
)

func header(magic, version uint32) []byte {
	b := binary.NativeEndian.AppendUint32(nil, magic)
	return binary.NativeEndian.AppendUint32(b, version)
}

func TestFromSliceHeaderErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		blob []byte
		want error
	}{
		{"empty", nil, ErrMalformedHeader},
		{"short", header(ManifestMagic, 2)[:7], ErrMalformedHeader},
		{"magic only", binary.NativeEndian.AppendUint32(nil, ManifestMagic), ErrMalformedHeader},
		{"bad magic", header(0xDEADBEEF, 2), ErrBadMagic},
		{"future version", header(ManifestMagic, 3), ErrVersionMismatch},
	}
	for _, tc := range cases {
		it, err := FromSlice(tc.blob)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
		if it != nil {
			t.Fatalf("%s: expected nil iterator", tc.name)
		}
	}

	for _, v := range []uint32{1, 2} {
		if _, err := FromSlice(header(ManifestMagic, v)); err != nil {
			t.Fatalf("version %d rejected: %v", v, err)
		}
	}
}

func TestTerminationIsIdempotent(t *testing.T) {
	t.Parallel()

	it, err := FromSlice(exampleImage())
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	for range 2 {
		if _, ok := it.Next(); !ok {
			t.Fatalf("expected object")
		}
	}
	for i := range 5 {
		if _, ok := it.Next(); ok {
			t.Fatalf("call %d after end returned an object", i)
		}
	}
}

func TestHeaderOnlyImageEndsAsTruncated(t *testing.T) {
	t.Parallel()

	it, err := FromSlice(header(ManifestMagic, 2))
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("expected no objects")
	}
	if !errors.Is(it.Err(), ErrTruncated) {
		t.Fatalf("err: got %v want ErrTruncated", it.Err())
	}
}

func TestTruncatedStreamYieldsCompleteObjects(t *testing.T) {
	t.Parallel()

	m := New()
	m.Add(NewObject(BootMsg, "welcome.txt", "Welcome", []byte("Hello")))
	img, err := m.ToImage()
	if err != nil {
		t.Fatalf("to image: %v", err)
	}
	// Drop the EndOfList terminator.
	img = img[:len(img)-4]

	it, err := FromSlice(img)
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	obj, ok := it.Next()
	if !ok || obj.Name != "welcome.txt" || string(obj.Bytes()) != "Hello" {
		t.Fatalf("first object: ok=%v obj=%+v", ok, obj)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("expected iteration to stop")
	}
	if !errors.Is(it.Err(), ErrTruncated) {
		t.Fatalf("err: got %v want ErrTruncated", it.Err())
	}

	objs, err := Collect(img)
	if len(objs) != 1 || !errors.Is(err, ErrTruncated) {
		t.Fatalf("collect: got %d objects, err %v", len(objs), err)
	}
}

func TestCorruptObjectMagicStopsIteration(t *testing.T) {
	t.Parallel()

	img := exampleImage()
	// Object B's magic sits at offset 56.
	binary.NativeEndian.PutUint32(img[56:], 0x12345678)

	it, err := FromSlice(img)
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	if obj, ok := it.Next(); !ok || obj.Name != "welcome.txt" {
		t.Fatalf("first object lost: ok=%v", ok)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("corrupt object was decoded")
	}
	if !errors.Is(it.Err(), ErrCorruptObject) {
		t.Fatalf("err: got %v want ErrCorruptObject", it.Err())
	}
	if it.Offset() != 56 {
		t.Fatalf("cursor moved past the corrupt record: %d", it.Offset())
	}
}

func TestContentPastEndStopsIteration(t *testing.T) {
	t.Parallel()

	img := exampleImage()
	// Claim object A holds far more content than the image has.
	binary.NativeEndian.PutUint64(img[16:], 1<<40)

	it, err := FromSlice(img)
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("oversized object was decoded")
	}
	if !errors.Is(it.Err(), ErrTruncated) {
		t.Fatalf("err: got %v want ErrTruncated", it.Err())
	}

	binary.NativeEndian.PutUint64(img[16:], ^uint64(0))
	objs, err := Collect(img)
	if len(objs) != 0 || !errors.Is(err, ErrTruncated) {
		t.Fatalf("overflowing length: got %d objects, err %v", len(objs), err)
	}
}

func TestHugePropertyCountStopsIteration(t *testing.T) {
	t.Parallel()

	img := exampleImage()
	// Object B's property count sits at offset 92.
	binary.NativeEndian.PutUint32(img[92:], 0xFFFFFFFF)

	objs, err := Collect(img)
	if len(objs) != 1 || !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %d objects, err %v", len(objs), err)
	}
}

func TestUnknownTypeCodesDecodeAsUnknown(t *testing.T) {
	t.Parallel()

	img := exampleImage()
	binary.NativeEndian.PutUint32(img[12:], 99)

	objs, err := Collect(img)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if objs[0].Type != Unknown {
		t.Fatalf("type: got %v want unknown", objs[0].Type)
	}
}

func TestExplicitEndOfListRecord(t *testing.T) {
	t.Parallel()

	// Object magic followed by an EndOfList type code is also a clean end.
	img := header(ManifestMagic, 2)
	img = binary.NativeEndian.AppendUint32(img, ObjectMagic)
	img = binary.NativeEndian.AppendUint32(img, 0)

	objs, err := Collect(img)
	if len(objs) != 0 || err != nil {
		t.Fatalf("got %d objects, err %v", len(objs), err)
	}
}

func TestContentAlignment(t *testing.T) {
	t.Parallel()

	m := New()
	for i, name := range []string{"a", "bb", "ccc", "dddd", "eeeee"} {
		data := make([]byte, i*3+1)
		props := make([]string, i)
		for j := range props {
			props[j] = name[:j+1]
		}
		m.Add(NewObject(GuestOS, name, name+name, data, props...))
	}
	img, err := m.ToImage()
	if err != nil {
		t.Fatalf("to image: %v", err)
	}

	it, err := FromSlice(img)
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	count := 0
	for obj := range it.All() {
		r := obj.Content.(Region)
		if r.Start%8 != 0 {
			t.Fatalf("content of %s starts at %d, not 8-byte aligned", obj.Name, r.Start)
		}
		if it.Offset()%8 != 0 {
			t.Fatalf("cursor after %s at %d, not 8-byte aligned", obj.Name, it.Offset())
		}
		count++
	}
	if count != 5 || it.Err() != nil {
		t.Fatalf("decoded %d objects, err %v", count, it.Err())
	}
}

func TestAllStopsWhenYieldReturnsFalse(t *testing.T) {
	t.Parallel()

	it, err := FromSlice(exampleImage())
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}
	for range it.All() {
		break
	}
	obj, ok := it.Next()
	if !ok || obj.Name != "init" {
		t.Fatalf("expected to resume at second object, got ok=%v name=%q", ok, obj.Name)
	}
}

func TestConcurrentDecodersShareImage(t *testing.T) {
	t.Parallel()

	img := exampleImage()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			objs, err := Collect(img)
			if err != nil {
				errs <- err
				return
			}
			if len(objs) != 2 {
				errs <- errors.New("wrong object count")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("decoder: %v", err)
	}
}
