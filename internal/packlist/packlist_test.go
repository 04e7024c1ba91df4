package packlist

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/samcharles93/dmfs/pkg/dmfs"
)

const sampleList = `
version: 2
objects:
  - type: boot_msg
    name: welcome.txt
    description: Welcome
    text: Hello
  - type: system-service
    name: init
    description: Init service
    path: init.bin
    properties: [exec, priv]
`

func TestLoadAndBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.bin"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("write content: %v", err)
	}
	listPath := filepath.Join(dir, "image.yaml")
	if err := os.WriteFile(listPath, []byte(sampleList), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}

	l, err := Load(listPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Version != 2 || len(l.Objects) != 2 {
		t.Fatalf("list mismatch: version %d objects %d", l.Version, len(l.Objects))
	}
	if l.Objects[1].Type != dmfs.SystemService {
		t.Fatalf("type mismatch: got %v", l.Objects[1].Type)
	}

	m, err := l.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	img, err := m.ToImageVersion(l.Version)
	if err != nil {
		t.Fatalf("to image: %v", err)
	}
	objs, err := dmfs.Collect(img)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(objs) != 2 || string(objs[0].Bytes()) != "Hello" || len(objs[1].Bytes()) != 10 {
		t.Fatalf("decoded objects mismatch")
	}
	if !slices.Equal(objs[1].Properties, []string{"exec", "priv"}) {
		t.Fatalf("properties mismatch: %v", objs[1].Properties)
	}
}

func TestParseDefaultsVersion(t *testing.T) {
	t.Parallel()

	l, err := Parse([]byte("objects: []\n"), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if l.Version != dmfs.CurrentVersion {
		t.Fatalf("version: got %d want %d", l.Version, dmfs.CurrentVersion)
	}
}

func TestParseRejectsInvalidLists(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no name":      "objects:\n  - type: boot_msg\n    text: x\n",
		"reserved":     "objects:\n  - type: end_of_list\n    name: a\n    text: x\n",
		"no content":   "objects:\n  - type: boot_msg\n    name: a\n",
		"both sources": "objects:\n  - type: boot_msg\n    name: a\n    text: x\n    path: y\n",
		"version":      "version: 7\nobjects: []\n",
		"bad type":     "objects:\n  - type: kernel\n    name: a\n    text: x\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc), ""); !errors.Is(err, ErrInvalidList) {
			t.Fatalf("%s: expected ErrInvalidList, got %v", name, err)
		}
	}
}

func TestBuildMissingFile(t *testing.T) {
	t.Parallel()

	l, err := Parse([]byte("objects:\n  - type: guest_os\n    name: g\n    path: nope.img\n"), t.TempDir())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := l.Build(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	text := "hi"
	l := &List{
		Version: 2,
		Objects: []Entry{
			{Type: dmfs.BootMsg, Name: "motd", Text: &text},
			{Type: dmfs.GuestOS, Name: "guest", Description: "a guest", Path: "guest.img", Properties: []string{"cpus=1"}},
		},
	}
	path := filepath.Join(dir, "image.yaml")
	if err := l.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Objects) != 2 {
		t.Fatalf("objects: got %d", len(got.Objects))
	}
	if got.Objects[0].Type != dmfs.BootMsg || got.Objects[0].Text == nil || *got.Objects[0].Text != "hi" {
		t.Fatalf("first entry mismatch: %+v", got.Objects[0])
	}
	g := got.Objects[1]
	if g.Type != dmfs.GuestOS || g.Path != "guest.img" || !slices.Equal(g.Properties, []string{"cpus=1"}) {
		t.Fatalf("second entry mismatch: %+v", g)
	}
}
