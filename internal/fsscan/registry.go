package fsscan

import "sort"

// PackageRegistry is the set of dotted package names seen during a
// scan. Names are only ever added.
type PackageRegistry struct {
	names map[string]struct{}
}

func NewPackageRegistry() *PackageRegistry {
	return &PackageRegistry{names: map[string]struct{}{}}
}

func (r *PackageRegistry) Add(name string) {
	r.names[name] = struct{}{}
}

func (r *PackageRegistry) Contains(name string) bool {
	_, ok := r.names[name]
	return ok
}

func (r *PackageRegistry) Len() int {
	return len(r.names)
}

// Names returns the registered names in lexical order.
func (r *PackageRegistry) Names() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
