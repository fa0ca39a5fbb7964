package resource

import "os"

// Location is a deferred reference to the content of a resource.
// Resolving it may fail; the error is only seen by the caller of
// Resolve.
type Location interface {
	Resolve() ([]byte, error)
}

// PathLocation is content backed by a file on disk. The file is read
// each time Resolve is called.
type PathLocation string

func (p PathLocation) Resolve() ([]byte, error) {
	return os.ReadFile(string(p))
}

// Path returns the filesystem path of the location.
func (p PathLocation) Path() string {
	return string(p)
}

// MemoryLocation is content that has already been read.
type MemoryLocation []byte

func (m MemoryLocation) Resolve() ([]byte, error) {
	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}

// Path returns the filesystem path backing a resource, or the empty
// string for resources that have none.
func Path(r Resource) string {
	var loc Location
	switch r := r.(type) {
	case SourceModule:
		loc = r.Source
	case BytecodeModule:
		loc = r.Bytecode
	case Data:
		loc = r.Data
	case ExtensionModule:
		return r.Path
	case EggFile:
		return r.Path
	case PthFile:
		return r.Path
	case OtherFile:
		return r.Path
	}
	if p, ok := loc.(PathLocation); ok {
		return p.Path()
	}
	return ""
}

// Name returns the address a resource is reachable under: the dotted
// module name for modules, the '/'-separated full name for data, and
// the empty string for address-free files.
func Name(r Resource) string {
	switch r := r.(type) {
	case SourceModule:
		return r.Name
	case BytecodeModule:
		return r.Name
	case ExtensionModule:
		return r.FullName
	case Data:
		return r.FullName
	case OtherFile:
		return r.FullName
	}
	return ""
}
