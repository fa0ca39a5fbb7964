// Package suffixes provides the filename suffix tables used to
// recognize Python module files. A table is an input to a scan; the
// scanner never modifies it.
package suffixes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

// Table lists the recognized suffixes per file category, mirroring
// the lists in Python's importlib.machinery. Extension must be
// ordered most specific first, since the first matching entry wins.
type Table struct {
	Source            []string `toml:"source" yaml:"source" json:"source"`
	Bytecode          []string `toml:"bytecode" yaml:"bytecode" json:"bytecode"`
	DebugBytecode     []string `toml:"debug_bytecode" yaml:"debug_bytecode" json:"debug_bytecode"`
	OptimizedBytecode []string `toml:"optimized_bytecode" yaml:"optimized_bytecode" json:"optimized_bytecode"`
	Extension         []string `toml:"extension" yaml:"extension" json:"extension"`
}

// ErrUnknownFormat is returned by Load for files whose extension is
// not one of .toml, .yaml, .yml or .json.
var ErrUnknownFormat = errors.New("unknown suffix table format")

// Load reads a table from a TOML, YAML or JSON file, picked by the
// file's extension, and validates it.
func Load(filename string) (Table, error) {
	var t Table

	contents, err := os.ReadFile(filename)
	if err != nil {
		return t, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		err = toml.Unmarshal(contents, &t)
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(contents, &t)
	case ".json":
		err = json.Unmarshal(contents, &t)
	default:
		return t, fmt.Errorf("%s: %w", filename, ErrUnknownFormat)
	}
	if err != nil {
		return t, fmt.Errorf("%s: %w", filename, err)
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// Validate checks that no list contains an empty suffix and that no
// extension suffix hides a later, longer one. For example ".so" listed
// before ".cpython-37m-x86_64-linux-gnu.so" would always win and
// produce a module named "foo.cpython-37m-x86_64-linux-gnu".
func (t Table) Validate() error {
	lists := map[string][]string{
		"source":             t.Source,
		"bytecode":           t.Bytecode,
		"debug_bytecode":     t.DebugBytecode,
		"optimized_bytecode": t.OptimizedBytecode,
		"extension":          t.Extension,
	}
	for name, list := range lists {
		for _, suffix := range list {
			if suffix == "" {
				return fmt.Errorf("empty suffix in %s list", name)
			}
		}
	}

	for i, earlier := range t.Extension {
		for _, later := range t.Extension[i+1:] {
			if later != earlier && strings.HasSuffix(later, earlier) {
				return fmt.Errorf("extension suffix %q shadows %q; list the longer suffix first", earlier, later)
			}
		}
	}
	return nil
}

// Empty reports whether the table recognizes no suffixes at all.
func (t Table) Empty() bool {
	return len(t.Source)+len(t.Bytecode)+len(t.DebugBytecode)+
		len(t.OptimizedBytecode)+len(t.Extension) == 0
}
