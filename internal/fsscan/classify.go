package fsscan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/replit/pyscan/internal/resource"
	"github.com/replit/pyscan/internal/suffixes"
)

const (
	// Stem of the file that turns a directory into a package.
	initMarker = "__init__"

	pycacheDir = "__pycache__"
)

// classifier turns normalized entries into resources, recording the
// package of every module it sees.
type classifier struct {
	table    suffixes.Table
	registry *PackageRegistry
}

// classify returns either a resource or, for files whose owning package
// cannot be known yet, a pending file.
func (c *classifier) classify(fullPath string, e entryPath) (resource.Resource, *pendingFile, error) {
	fileName := e.fileName()

	for _, suffix := range c.table.Extension {
		if !strings.HasSuffix(fileName, suffix) {
			continue
		}

		parents := e.parents()
		stem := strings.TrimSuffix(fileName, suffix)
		fullName := moduleName(parents, stem)
		pkg := packageName(parents, fullName)
		if stem == initMarker {
			stem = ""
		}
		c.registry.Add(pkg)

		return resource.ExtensionModule{
			Package:  pkg,
			Stem:     stem,
			FullName: fullName,
			Path:     fullPath,
			Suffix:   suffix,
		}, nil, nil
	}

	stem, ext := splitExt(fileName)
	switch ext {
	case "py":
		parents := e.parents()
		name := moduleName(parents, stem)
		c.registry.Add(packageName(parents, name))

		return resource.SourceModule{
			Name:      name,
			Source:    resource.PathLocation(fullPath),
			IsPackage: stem == initMarker,
		}, nil, nil

	case "pyc":
		return c.classifyBytecode(fullPath, e, stem)

	case "egg":
		return resource.EggFile{Path: fullPath}, nil, nil

	case "pth":
		return resource.PthFile{Path: fullPath}, nil, nil
	}

	return nil, &pendingFile{fullPath: fullPath, components: e.components}, nil
}

// Files have the form <package>/__pycache__/<module>.<tag>[.opt-N].pyc.
func (c *classifier) classifyBytecode(fullPath string, e entryPath, stem string) (resource.Resource, *pendingFile, error) {
	if len(e.components) < 2 {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Join(e.components...), ErrInvalidBytecodePath)
	}

	// Python 2 and other tools put bytecode next to the source.
	if e.components[len(e.components)-2] != pycacheDir {
		return resource.OtherFile{
			Package:  strings.Join(e.parents(), "."),
			Stem:     e.fileName(),
			FullName: strings.Join(e.components, "."),
			Path:     fullPath,
		}, nil, nil
	}

	parents := e.components[:len(e.components)-2]
	name := moduleName(parents, cacheModuleName(stem))
	c.registry.Add(packageName(parents, name))

	level := resource.OptimizationZero
	switch fileName := e.fileName(); {
	case strings.HasSuffix(fileName, ".opt-1.pyc"):
		level = resource.OptimizationOne
	case strings.HasSuffix(fileName, ".opt-2.pyc"):
		level = resource.OptimizationTwo
	}

	return resource.BytecodeModule{
		Name:              name,
		OptimizationLevel: level,
		Bytecode:          resource.PathLocation(fullPath),
	}, nil, nil
}

// cacheModuleName drops the last dot-separated segment from the stem
// of a __pycache__ filename: "foo.cpython-37" is "foo". Only one
// segment is dropped, so "foo.cpython-37.opt-1" is "foo.cpython-37"
// and a stem without dots yields "".
func cacheModuleName(stem string) string {
	i := strings.LastIndexByte(stem, '.')
	if i < 0 {
		return ""
	}
	return stem[:i]
}

// moduleName is the dotted name of module stem inside the package
// directory parents. An __init__ module is named after its package.
func moduleName(parents []string, stem string) string {
	parts := append([]string{}, parents...)
	if stem != initMarker {
		parts = append(parts, stem)
	}
	return strings.Join(parts, ".")
}

// packageName is the package a module registers: its directory, or
// the module itself when it sits at the root.
func packageName(parents []string, fullName string) string {
	if len(parents) == 0 {
		return fullName
	}
	return strings.Join(parents, ".")
}

// splitExt splits a filename at its last dot. A leading dot does not
// start an extension, so ".pyc" has stem ".pyc" and no extension.
func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}
