package fsscan

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/replit/pyscan/internal/resource"
	"github.com/replit/pyscan/internal/suffixes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	emptySuffixes  = suffixes.Table{}
	suffixesWithSo = suffixes.Table{Extension: []string{".so"}}
)

// writeFiles creates each '/'-separated path below root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	}
}

func scanAll(t *testing.T, root string, table suffixes.Table) []resource.Resource {
	t.Helper()
	resources, err := FindResources(root, table)
	require.NoError(t, err)
	return resources
}

func source(name string, path string, isPackage bool) resource.SourceModule {
	return resource.SourceModule{
		Name:      name,
		Source:    resource.PathLocation(path),
		IsPackage: isPackage,
	}
}

func TestSourceResolution(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"acme/__init__.py":     "",
		"acme/a/__init__.py":   "",
		"acme/a/foo.py":        "# acme.foo",
		"acme/bar/__init__.py": "",
	})

	assert.Equal(t, []resource.Resource{
		source("acme", filepath.Join(root, "acme", "__init__.py"), true),
		source("acme.a", filepath.Join(root, "acme", "a", "__init__.py"), true),
		source("acme.a.foo", filepath.Join(root, "acme", "a", "foo.py"), false),
		source("acme.bar", filepath.Join(root, "acme", "bar", "__init__.py"), true),
	}, scanAll(t, root, emptySuffixes))
}

func TestSitePackages(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"site-packages/acme/__init__.py": "",
		"site-packages/acme/bar.py":      "",
	})
	acme := filepath.Join(root, "site-packages", "acme")

	assert.Equal(t, []resource.Resource{
		source("acme", filepath.Join(acme, "__init__.py"), true),
		source("acme.bar", filepath.Join(acme, "bar.py"), false),
	}, scanAll(t, root, emptySuffixes))
}

func TestExtensionModules(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo.pyd":                          "",
		"bar.so":                           "",
		"_cffi_backend.cp37-win_amd64.pyd": "",
		"zstd.cpython-37m-x86_64-linux-gnu.so": "",
		"markupsafe/_speedups.cpython-37m-x86_64-linux-gnu.so": "",
	})

	table := suffixes.Table{
		Extension: []string{
			".cp37-win_amd64.pyd",
			".cp37-win32.pyd",
			".cpython-37m-x86_64-linux-gnu.so",
			".pyd",
			".so",
		},
	}

	assert.Equal(t, []resource.Resource{
		resource.ExtensionModule{
			Package:  "_cffi_backend",
			Stem:     "_cffi_backend",
			FullName: "_cffi_backend",
			Path:     filepath.Join(root, "_cffi_backend.cp37-win_amd64.pyd"),
			Suffix:   ".cp37-win_amd64.pyd",
		},
		resource.ExtensionModule{
			Package:  "bar",
			Stem:     "bar",
			FullName: "bar",
			Path:     filepath.Join(root, "bar.so"),
			Suffix:   ".so",
		},
		resource.ExtensionModule{
			Package:  "foo",
			Stem:     "foo",
			FullName: "foo",
			Path:     filepath.Join(root, "foo.pyd"),
			Suffix:   ".pyd",
		},
		resource.ExtensionModule{
			Package:  "markupsafe",
			Stem:     "_speedups",
			FullName: "markupsafe._speedups",
			Path:     filepath.Join(root, "markupsafe", "_speedups.cpython-37m-x86_64-linux-gnu.so"),
			Suffix:   ".cpython-37m-x86_64-linux-gnu.so",
		},
		resource.ExtensionModule{
			Package:  "zstd",
			Stem:     "zstd",
			FullName: "zstd",
			Path:     filepath.Join(root, "zstd.cpython-37m-x86_64-linux-gnu.so"),
			Suffix:   ".cpython-37m-x86_64-linux-gnu.so",
		},
	}, scanAll(t, root, table))
}

func TestExtensionPackageInit(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"fast/__init__.so": "",
		"fast/data.bin":    "",
	})

	assert.Equal(t, []resource.Resource{
		resource.ExtensionModule{
			Package:  "fast",
			Stem:     "",
			FullName: "fast",
			Path:     filepath.Join(root, "fast", "__init__.so"),
			Suffix:   ".so",
		},
		resource.Data{
			FullName:     "fast/data.bin",
			LeafPackage:  "fast",
			RelativeName: "data.bin",
			Data:         resource.PathLocation(filepath.Join(root, "fast", "data.bin")),
		},
	}, scanAll(t, root, suffixes.Table{Extension: []string{".so"}}))
}

func TestEggFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"foo-1.0-py3.7.egg": ""})

	assert.Equal(t, []resource.Resource{
		resource.EggFile{Path: filepath.Join(root, "foo-1.0-py3.7.egg")},
	}, scanAll(t, root, emptySuffixes))
}

func TestEggDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"site-packages/foo-1.0-py3.7.egg/EGG-INFO/PKG-INFO": "",
		"site-packages/foo-1.0-py3.7.egg/foo/__init__.py":   "",
		"site-packages/foo-1.0-py3.7.egg/foo/bar.py":        "",
	})
	pkg := filepath.Join(root, "site-packages", "foo-1.0-py3.7.egg", "foo")

	assert.Equal(t, []resource.Resource{
		source("foo", filepath.Join(pkg, "__init__.py"), true),
		source("foo.bar", filepath.Join(pkg, "bar.py"), false),
	}, scanAll(t, root, emptySuffixes))
}

func TestEggDirOutsideSitePackages(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"eggs/foo-1.0.egg/foo/__init__.py": "",
		"eggs/foo-1.0.egg/foo/logo.png":    "",
	})
	pkg := filepath.Join(root, "eggs", "foo-1.0.egg", "foo")

	assert.Equal(t, []resource.Resource{
		source("foo", filepath.Join(pkg, "__init__.py"), true),
		resource.Data{
			FullName:     "foo/logo.png",
			LeafPackage:  "foo",
			RelativeName: "logo.png",
			Data:         resource.PathLocation(filepath.Join(pkg, "logo.png")),
		},
	}, scanAll(t, root, emptySuffixes))
}

func TestPthFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"foo.pth": ""})

	assert.Equal(t, []resource.Resource{
		resource.PthFile{Path: filepath.Join(root, "foo.pth")},
	}, scanAll(t, root, emptySuffixes))
}

func TestMetadataDirectoriesExcluded(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo-1.0.dist-info/METADATA":   "",
		"foo-1.0.dist-info/RECORD":     "",
		"bar-2.0.egg-info/PKG-INFO":    "",
		"bar-2.0.egg-info/__init__.py": "",
		"foo/__init__.py":              "",
	})

	scanner := New(root, emptySuffixes)
	var resources []resource.Resource
	for r, err := range scanner.All() {
		require.NoError(t, err)
		resources = append(resources, r)
	}

	assert.Equal(t, []resource.Resource{
		source("foo", filepath.Join(root, "foo", "__init__.py"), true),
	}, resources)
	assert.Equal(t, Stats{Files: 5, Skipped: 4}, scanner.Stats())
}

func TestBytecodeModules(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo/__init__.py":                          "",
		"foo/__pycache__/__init__.cpython-37.pyc":  "",
		"foo/__pycache__/bar.cpython-37.pyc":       "",
		"foo/__pycache__/bar.cpython-37.opt-1.pyc": "",
		"foo/__pycache__/bar.cpython-37.opt-2.pyc": "",
		"__pycache__/toplevel.cpython-37.pyc":      "",
	})
	cache := filepath.Join(root, "foo", "__pycache__")

	assert.Equal(t, []resource.Resource{
		resource.BytecodeModule{
			Name:              "toplevel",
			OptimizationLevel: resource.OptimizationZero,
			Bytecode:          resource.PathLocation(filepath.Join(root, "__pycache__", "toplevel.cpython-37.pyc")),
		},
		source("foo", filepath.Join(root, "foo", "__init__.py"), true),
		resource.BytecodeModule{
			Name:              "foo",
			OptimizationLevel: resource.OptimizationZero,
			Bytecode:          resource.PathLocation(filepath.Join(cache, "__init__.cpython-37.pyc")),
		},
		// Only the last segment of the cache stem is dropped.
		resource.BytecodeModule{
			Name:              "foo.bar.cpython-37",
			OptimizationLevel: resource.OptimizationOne,
			Bytecode:          resource.PathLocation(filepath.Join(cache, "bar.cpython-37.opt-1.pyc")),
		},
		resource.BytecodeModule{
			Name:              "foo.bar.cpython-37",
			OptimizationLevel: resource.OptimizationTwo,
			Bytecode:          resource.PathLocation(filepath.Join(cache, "bar.cpython-37.opt-2.pyc")),
		},
		resource.BytecodeModule{
			Name:              "foo.bar",
			OptimizationLevel: resource.OptimizationZero,
			Bytecode:          resource.PathLocation(filepath.Join(cache, "bar.cpython-37.pyc")),
		},
	}, scanAll(t, root, emptySuffixes))
}

func TestRootOptimizedBytecodeRegistersCacheName(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"__pycache__/x.cpython-37.opt-1.pyc": "",
		"__pycache__/y.pyc":                  "",
	})

	scanner := New(root, emptySuffixes)
	resources := []resource.Resource{}
	for r, err := range scanner.All() {
		require.NoError(t, err)
		resources = append(resources, r)
	}

	assert.Equal(t, []resource.Resource{
		resource.BytecodeModule{
			Name:              "x.cpython-37",
			OptimizationLevel: resource.OptimizationOne,
			Bytecode:          resource.PathLocation(filepath.Join(root, "__pycache__", "x.cpython-37.opt-1.pyc")),
		},
		resource.BytecodeModule{
			Name:              "",
			OptimizationLevel: resource.OptimizationZero,
			Bytecode:          resource.PathLocation(filepath.Join(root, "__pycache__", "y.pyc")),
		},
	}, resources)
	assert.True(t, scanner.Registry().Contains("x.cpython-37"))
	assert.True(t, scanner.Registry().Contains(""))
}

func TestLegacyBytecodeIsOtherFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"foo/bar.pyc": ""})

	assert.Equal(t, []resource.Resource{
		resource.OtherFile{
			Package:  "foo",
			Stem:     "bar.pyc",
			FullName: "foo.bar.pyc",
			Path:     filepath.Join(root, "foo", "bar.pyc"),
		},
	}, scanAll(t, root, emptySuffixes))
}

func TestRootBytecodeIsFatal(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":  "",
		"b.pyc": "",
		"c.py":  "",
	})

	scanner := New(root, emptySuffixes)

	r, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, source("a", filepath.Join(root, "a.py"), false), r)

	_, err = scanner.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidBytecodePath))
	assert.Contains(t, err.Error(), "b.pyc")

	// The error is sticky; the scan does not continue past it.
	_, again := scanner.Next()
	assert.Equal(t, err, again)

	_, err = FindResources(root, emptySuffixes)
	assert.ErrorIs(t, err, ErrInvalidBytecodePath)
}

func TestInvalidPathEncodingIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "foo"), 0o755))
	bad := filepath.Join(root, "foo", "bad\xff.txt")
	if err := os.WriteFile(bad, nil, 0o644); err != nil {
		t.Skipf("filesystem rejects non-UTF-8 names: %s", err)
	}

	scanner := New(root, emptySuffixes)
	_, err := scanner.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPathEncoding)
	assert.Contains(t, err.Error(), strconv.Quote(bad))

	_, again := scanner.Next()
	assert.Equal(t, err, again)
}

func TestRootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"file.py": ""})

	_, err := FindResources(filepath.Join(root, "file.py"), emptySuffixes)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = FindResources(filepath.Join(root, "missing"), emptySuffixes)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnreadableDirectoryIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo/__init__.py":    "",
		"locked/__init__.py": "",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	defer os.Chmod(locked, 0o755)

	_, err := FindResources(root, emptySuffixes)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestRootResourceFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"resource.txt": "content"})

	assert.Empty(t, scanAll(t, root, emptySuffixes))
}

func TestRelativeResourceNoPackage(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo.py":                 "",
		"resources/resource.txt": "content",
	})

	scanner := New(root, emptySuffixes)
	var resources []resource.Resource
	for r, err := range scanner.All() {
		require.NoError(t, err)
		resources = append(resources, r)
	}

	assert.Equal(t, []resource.Resource{
		source("foo", filepath.Join(root, "foo.py"), false),
	}, resources)
	assert.Equal(t, 1, scanner.Stats().Dropped)
}

func TestRelativePackageResource(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo/__init__.py":  "",
		"foo/resource.txt": "content",
	})

	assert.Equal(t, []resource.Resource{
		source("foo", filepath.Join(root, "foo", "__init__.py"), true),
		resource.Data{
			FullName:     "foo/resource.txt",
			LeafPackage:  "foo",
			RelativeName: "resource.txt",
			Data:         resource.PathLocation(filepath.Join(root, "foo", "resource.txt")),
		},
	}, scanAll(t, root, emptySuffixes))
}

func TestSubdirectoryResource(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"foo/__init__.py":            "",
		"foo/resources/resource.txt": "content",
	})

	assert.Equal(t, []resource.Resource{
		source("foo", filepath.Join(root, "foo", "__init__.py"), true),
		resource.Data{
			FullName:     "foo/resources/resource.txt",
			LeafPackage:  "foo",
			RelativeName: "resources/resource.txt",
			Data:         resource.PathLocation(filepath.Join(root, "foo", "resources", "resource.txt")),
		},
	}, scanAll(t, root, emptySuffixes))
}

func TestResourceResolvesToDeepestPackage(t *testing.T) {
	root := t.TempDir()
	// icon.svg is walked before zz.py, the module that makes foo.bar a
	// package.
	writeFiles(t, root, map[string]string{
		"foo/__init__.py":         "",
		"foo/a_data.txt":          "",
		"foo/bar/assets/icon.svg": "",
		"foo/bar/zz.py":           "",
	})

	resources := scanAll(t, root, emptySuffixes)
	require.Len(t, resources, 4)
	assert.Equal(t, resource.Data{
		FullName:     "foo/a_data.txt",
		LeafPackage:  "foo",
		RelativeName: "a_data.txt",
		Data:         resource.PathLocation(filepath.Join(root, "foo", "a_data.txt")),
	}, resources[2])
	assert.Equal(t, resource.Data{
		FullName:     "foo/bar/assets/icon.svg",
		LeafPackage:  "foo.bar",
		RelativeName: "assets/icon.svg",
		Data:         resource.PathLocation(filepath.Join(root, "foo", "bar", "assets", "icon.svg")),
	}, resources[3])
}

func TestSitePackagesResource(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"site-packages/certifi/__init__.py": "",
		"site-packages/certifi/cacert.pem":  "",
	})

	resources := scanAll(t, root, emptySuffixes)
	require.Len(t, resources, 2)
	assert.Equal(t, resource.Data{
		FullName:     "certifi/cacert.pem",
		LeafPackage:  "certifi",
		RelativeName: "cacert.pem",
		Data:         resource.PathLocation(filepath.Join(root, "site-packages", "certifi", "cacert.pem")),
	}, resources[1])
}

func TestRootPackageOwnsRootResources(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"__init__.py":  "",
		"resource.txt": "",
	})

	resources := scanAll(t, root, emptySuffixes)
	assert.Equal(t, []resource.Resource{
		source("", filepath.Join(root, "__init__.py"), true),
		resource.Data{
			FullName:     "resource.txt",
			LeafPackage:  "",
			RelativeName: "resource.txt",
			Data:         resource.PathLocation(filepath.Join(root, "resource.txt")),
		},
	}, resources)
}

func TestScanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"site-packages/acme/__init__.py":                         "",
		"site-packages/acme/data/a.json":                         "",
		"site-packages/acme/__pycache__/x.cpython-39.pyc":        "",
		"site-packages/acme/_ext.cpython-39-x86_64-linux-gnu.so": "",
		"site-packages/acme.pth":                                 "",
		"os.py":                                                  "",
		"README":                                                 "",
	})
	table, err := suffixes.Default("3.9", "linux", "amd64")
	require.NoError(t, err)

	first := scanAll(t, root, table)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, scanAll(t, root, table))
	}
}

func TestScannerIsOneShot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"foo.py": ""})

	scanner := New(root, emptySuffixes)
	_, err := scanner.Next()
	require.NoError(t, err)

	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)
	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)

	count := 0
	for range scanner.All() {
		count++
	}
	assert.Zero(t, count)
	assert.Equal(t, []string{"foo"}, scanner.Registry().Names())
}

func TestStopEarlyIsSafe(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a/__init__.py": "",
		"b/__init__.py": "",
		"c/__init__.py": "",
	})

	scanner := New(root, emptySuffixes)
	for range scanner.All() {
		break
	}
	assert.Equal(t, []string{"a"}, scanner.Registry().Names())

	r, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", resource.Name(r))
}

func TestSymlinkedDirectoryNotFollowed(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"real/__init__.py": "",
		"real/mod.py":      "",
	})
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "zlink")); err != nil {
		t.Skip("symlinks not supported")
	}

	names := []string{}
	for _, r := range scanAll(t, root, emptySuffixes) {
		names = append(names, resource.Name(r))
	}
	assert.Equal(t, []string{"real", "real.mod"}, names)
}
