// Package packlist reads the YAML description of an image to build.
//
//	version: 2
//	objects:
//	  - type: boot_msg
//	    name: welcome.txt
//	    description: Welcome
//	    path: banner.txt
//	  - type: system_service
//	    name: init
//	    description: Init service
//	    path: build/init.elf
//	    properties: [exec, priv]
//
// Each object takes its content from exactly one of path (relative to the list
// file) or text (inline).
package packlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/dmfs/pkg/dmfs"
)

var ErrInvalidList = errors.New("packlist: invalid list")

// List is a parsed pack list.
type List struct {
	Version uint32  `yaml:"version"`
	Objects []Entry `yaml:"objects"`

	baseDir string
}

// Entry describes one object.
type Entry struct {
	Type        dmfs.ObjectType `yaml:"type"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Properties  []string        `yaml:"properties,omitempty,flow"`
	Path        string          `yaml:"path,omitempty"`
	Text        *string         `yaml:"text,omitempty"`
}

// Load reads and validates the list at path. Relative content paths resolve
// against the list's directory.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a list. baseDir anchors relative content paths.
func Parse(data []byte, baseDir string) (*List, error) {
	var l List
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidList, err)
	}
	if l.Version == 0 {
		l.Version = dmfs.CurrentVersion
	}
	l.baseDir = baseDir
	if err := l.validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *List) validate() error {
	if l.Version != dmfs.CurrentVersion && l.Version != dmfs.LegacyVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidList, l.Version)
	}
	for i, e := range l.Objects {
		switch {
		case e.Name == "":
			return fmt.Errorf("%w: object %d has no name", ErrInvalidList, i)
		case e.Type == dmfs.EndOfList:
			return fmt.Errorf("%w: object %q: type %s is reserved", ErrInvalidList, e.Name, e.Type)
		case e.Path != "" && e.Text != nil:
			return fmt.Errorf("%w: object %q sets both path and text", ErrInvalidList, e.Name)
		case e.Path == "" && e.Text == nil:
			return fmt.Errorf("%w: object %q needs a path or text", ErrInvalidList, e.Name)
		}
	}
	return nil
}

// Build reads every object's content and returns the manifest, ready to encode
// with ToImageVersion(l.Version).
func (l *List) Build() (*dmfs.Manifest, error) {
	m := dmfs.New()
	for _, e := range l.Objects {
		data, err := l.content(e)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", e.Name, err)
		}
		m.Add(dmfs.NewObject(e.Type, e.Name, e.Description, data, e.Properties...))
	}
	return m, nil
}

func (l *List) content(e Entry) ([]byte, error) {
	if e.Text != nil {
		return []byte(*e.Text), nil
	}
	path := e.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, path)
	}
	return os.ReadFile(path)
}

// Marshal encodes l as YAML.
func (l *List) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

// Save writes l to path.
func (l *List) Save(path string) error {
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
