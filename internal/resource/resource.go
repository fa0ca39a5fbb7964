// Package resource defines the records produced by scanning an
// installed Python distribution. Every file that survives a scan is
// represented by exactly one value implementing Resource.
package resource

// Kind identifies which Resource variant a value is.
type Kind int

// Values for Kind.
const (
	// A .py file.
	KindSourceModule Kind = iota

	// A .pyc file in a __pycache__ directory.
	KindBytecodeModule

	// A compiled extension module (.so, .pyd, ...).
	KindExtensionModule

	// A non-module file owned by a package.
	KindData

	// A .egg file.
	KindEggFile

	// A .pth file.
	KindPthFile

	// A .pyc file outside of a __pycache__ directory.
	KindOtherFile
)

var kindNames = map[Kind]string{
	KindSourceModule:    "source",
	KindBytecodeModule:  "bytecode",
	KindExtensionModule: "extension",
	KindData:            "data",
	KindEggFile:         "egg",
	KindPthFile:         "pth",
	KindOtherFile:       "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Resource is implemented by every record type in this package.
type Resource interface {
	Kind() Kind
}

// OptimizationLevel is the optimization pass that produced a bytecode
// file, as encoded in its cache filename.
type OptimizationLevel int

// Values for OptimizationLevel.
const (
	OptimizationZero OptimizationLevel = iota
	OptimizationOne
	OptimizationTwo
)

// SourceModule is Python module source code, i.e. a .py file.
type SourceModule struct {
	// Fully qualified dotted name of the module.
	Name string

	Source Location

	// True if the file is the __init__ of a package.
	IsPackage bool
}

// BytecodeModule is a compiled module from a __pycache__ directory.
type BytecodeModule struct {
	Name              string
	OptimizationLevel OptimizationLevel
	Bytecode          Location
}

// ExtensionModule is a native module, i.e. a .so or .pyd file.
type ExtensionModule struct {
	Package  string
	Stem     string
	FullName string
	Path     string

	// The entry of the suffix table that matched the filename.
	Suffix string
}

// Data is a non-module file addressable through a package's resource
// reader.
type Data struct {
	// Path relative to the package root, always '/'-separated.
	FullName string

	// The deepest package enclosing the file.
	LeafPackage string

	// Path relative to LeafPackage, always '/'-separated.
	RelativeName string

	Data Location
}

// EggFile is a zipped egg.
type EggFile struct {
	Path string
}

// PthFile is a path extension file.
type PthFile struct {
	Path string
}

// OtherFile is a bytecode file using the legacy layout, i.e. living next
// to its source rather than in a __pycache__ directory.
type OtherFile struct {
	Package  string
	Stem     string
	FullName string
	Path     string
}

func (SourceModule) Kind() Kind    { return KindSourceModule }
func (BytecodeModule) Kind() Kind  { return KindBytecodeModule }
func (ExtensionModule) Kind() Kind { return KindExtensionModule }
func (Data) Kind() Kind            { return KindData }
func (EggFile) Kind() Kind         { return KindEggFile }
func (PthFile) Kind() Kind         { return KindPthFile }
func (OtherFile) Kind() Kind       { return KindOtherFile }

// Source is a stream of resources, such as a scan in progress. Next
// returns io.EOF once the stream is exhausted.
type Source interface {
	Next() (Resource, error)
}
