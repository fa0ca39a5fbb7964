package fsscan

import (
	"strings"

	"github.com/replit/pyscan/internal/resource"
)

// pendingFile is a non-module file waiting for the walk to finish so
// its owning package can be determined.
type pendingFile struct {
	fullPath string

	// Components relative to the package root, filename last.
	components []string
}

// resolve addresses a pending file against the final package registry.
//
// A file at foo/bar/resource.txt is reachable as "resource.txt" from
// package foo.bar, as "bar/resource.txt" from foo, and so on. The
// deepest registered package wins, as it is the one Python's resource
// readers find first. Files with no enclosing package are not
// resources and are reported as unresolved.
func resolve(p pendingFile, registry *PackageRegistry) (resource.Data, bool) {
	dirs := p.components[:len(p.components)-1]

	for n := len(dirs); n >= 0; n-- {
		candidate := strings.Join(dirs[:n], ".")
		if !registry.Contains(candidate) {
			continue
		}
		return resource.Data{
			FullName:     strings.Join(p.components, "/"),
			LeafPackage:  candidate,
			RelativeName: strings.Join(p.components[n:], "/"),
			Data:         resource.PathLocation(p.fullPath),
		}, true
	}

	return resource.Data{}, false
}
