// Package manifest renders scanned resources as flat records that can
// be written to JSON or YAML files.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/replit/pyscan/internal/resource"
	"github.com/replit/pyscan/internal/util"
	"gopkg.in/yaml.v2"
)

// Entry is one resource, flattened. Fields that do not apply to the
// resource's kind are left empty.
type Entry struct {
	Kind              string `json:"kind" yaml:"kind"`
	Name              string `json:"name,omitempty" yaml:"name,omitempty"`
	Package           string `json:"package,omitempty" yaml:"package,omitempty"`
	Stem              string `json:"stem,omitempty" yaml:"stem,omitempty"`
	RelativeName      string `json:"relative_name,omitempty" yaml:"relative_name,omitempty"`
	Path              string `json:"path,omitempty" yaml:"path,omitempty"`
	Suffix            string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	OptimizationLevel int    `json:"optimization_level,omitempty" yaml:"optimization_level,omitempty"`
	IsPackage         bool   `json:"is_package,omitempty" yaml:"is_package,omitempty"`
}

// Format is an output encoding for a manifest.
type Format int

// Values for Format.
const (
	FormatJSON Format = iota
	FormatYAML
)

// ParseFormat takes "json" or "yaml".
func ParseFormat(name string) (Format, error) {
	switch name {
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("invalid manifest format %q (must be \"json\" or \"yaml\")", name)
}

// FromResource flattens r.
func FromResource(r resource.Resource) Entry {
	e := Entry{
		Kind: r.Kind().String(),
		Name: resource.Name(r),
		Path: resource.Path(r),
	}

	switch r := r.(type) {
	case resource.SourceModule:
		e.IsPackage = r.IsPackage
	case resource.BytecodeModule:
		e.OptimizationLevel = int(r.OptimizationLevel)
	case resource.ExtensionModule:
		e.Package = r.Package
		e.Stem = r.Stem
		e.Suffix = r.Suffix
	case resource.Data:
		e.Package = r.LeafPackage
		e.RelativeName = r.RelativeName
	case resource.OtherFile:
		e.Package = r.Package
		e.Stem = r.Stem
	}

	return e
}

// Collect drains src, flattening every resource. filter, if not nil,
// selects which resources are kept.
func Collect(src resource.Source, filter func(resource.Resource) bool) ([]Entry, error) {
	entries := []Entry{}
	for {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		if filter != nil && !filter(r) {
			continue
		}
		entries = append(entries, FromResource(r))
	}
}

// Marshal encodes entries. JSON output is indented and ends with a
// newline.
func Marshal(entries []Entry, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		content, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(content, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(entries)
	}
	util.Panicf("unknown manifest format %d", format)
	return nil, nil
}

// Write encodes entries and atomically replaces filename with them.
func Write(filename string, entries []Entry, format Format) error {
	content, err := Marshal(entries, format)
	if err != nil {
		return err
	}
	return util.WriteAtomic(filename, content)
}
