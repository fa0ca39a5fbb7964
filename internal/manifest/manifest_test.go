package manifest

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/replit/pyscan/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

type sliceSource struct {
	resources []resource.Resource
	err       error
}

func (s *sliceSource) Next() (resource.Resource, error) {
	if len(s.resources) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.resources[0]
	s.resources = s.resources[1:]
	return r, nil
}

func TestFromResource(t *testing.T) {
	assert.Equal(t, Entry{
		Kind:      "source",
		Name:      "acme",
		Path:      "/site/acme/__init__.py",
		IsPackage: true,
	}, FromResource(resource.SourceModule{
		Name:      "acme",
		Source:    resource.PathLocation("/site/acme/__init__.py"),
		IsPackage: true,
	}))

	assert.Equal(t, Entry{
		Kind:              "bytecode",
		Name:              "acme",
		Path:              "/site/acme/__pycache__/__init__.cpython-37.opt-2.pyc",
		OptimizationLevel: 2,
	}, FromResource(resource.BytecodeModule{
		Name:              "acme",
		OptimizationLevel: resource.OptimizationTwo,
		Bytecode:          resource.PathLocation("/site/acme/__pycache__/__init__.cpython-37.opt-2.pyc"),
	}))

	assert.Equal(t, Entry{
		Kind:    "extension",
		Name:    "markupsafe._speedups",
		Package: "markupsafe",
		Stem:    "_speedups",
		Path:    "/site/markupsafe/_speedups.so",
		Suffix:  ".so",
	}, FromResource(resource.ExtensionModule{
		Package:  "markupsafe",
		Stem:     "_speedups",
		FullName: "markupsafe._speedups",
		Path:     "/site/markupsafe/_speedups.so",
		Suffix:   ".so",
	}))

	assert.Equal(t, Entry{
		Kind:         "data",
		Name:         "foo/resources/a.txt",
		Package:      "foo",
		RelativeName: "resources/a.txt",
		Path:         "/site/foo/resources/a.txt",
	}, FromResource(resource.Data{
		FullName:     "foo/resources/a.txt",
		LeafPackage:  "foo",
		RelativeName: "resources/a.txt",
		Data:         resource.PathLocation("/site/foo/resources/a.txt"),
	}))

	assert.Equal(t, Entry{Kind: "pth", Path: "/site/a.pth"}, FromResource(resource.PthFile{Path: "/site/a.pth"}))
}

func TestCollectAndWrite(t *testing.T) {
	src := &sliceSource{resources: []resource.Resource{
		resource.EggFile{Path: "/site/a.egg"},
		resource.SourceModule{Name: "a", Source: resource.PathLocation("/site/a.py")},
	}}

	entries, err := Collect(src, func(r resource.Resource) bool {
		return r.Kind() == resource.KindSourceModule
	})
	require.NoError(t, err)
	require.Equal(t, []Entry{{Kind: "source", Name: "a", Path: "/site/a.py"}}, entries)

	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "out", "manifest.json")
	require.NoError(t, Write(jsonFile, entries, FormatJSON))
	content, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"kind\": \"source\",\n    \"name\": \"a\",\n    \"path\": \"/site/a.py\"\n  }\n]\n", string(content))

	yamlFile := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, Write(yamlFile, entries, FormatYAML))
	content, err = os.ReadFile(yamlFile)
	require.NoError(t, err)
	var decoded []Entry
	require.NoError(t, yaml.Unmarshal(content, &decoded))
	assert.Equal(t, entries, decoded)
}

func TestCollectStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect(&sliceSource{err: boom}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
