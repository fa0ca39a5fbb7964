package suffixes

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/replit/pyscan/internal/util"
)

var (
	// Python 2 keeps bytecode next to the source and is not supported.
	supportedPython = version.MustConstraints(version.NewConstraint(">= 3.0"))

	// PEP 488 dropped .pyo in 3.5.
	legacyOptimized = version.MustConstraints(version.NewConstraint("< 3.5"))

	// The "m" (pymalloc) ABI flag was dropped in 3.8.
	pymallocABI = version.MustConstraints(version.NewConstraint("< 3.8"))
)

var linuxArch = map[string]string{
	"amd64":   "x86_64",
	"386":     "i386",
	"arm64":   "aarch64",
	"arm":     "arm",
	"ppc64le": "powerpc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

var windowsPlatform = map[string]string{
	"amd64": "win_amd64",
	"386":   "win32",
	"arm64": "win_arm64",
}

// Default returns the suffix table CPython pythonVersion uses on the
// given Go platform. pythonVersion is a "3.X" or "3.X.Y" string.
func Default(pythonVersion string, goos string, goarch string) (Table, error) {
	v, err := version.NewVersion(pythonVersion)
	if err != nil {
		return Table{}, fmt.Errorf("python version %q: %w", pythonVersion, err)
	}
	if !supportedPython.Check(v) {
		return Table{}, fmt.Errorf("python version %s is not supported", v)
	}

	segments := v.Segments()
	major, minor := segments[0], 0
	if len(segments) > 1 {
		minor = segments[1]
	}

	t := Table{
		Source:            []string{".py"},
		Bytecode:          []string{".pyc"},
		DebugBytecode:     []string{".pyc"},
		OptimizedBytecode: []string{".pyc"},
	}
	if legacyOptimized.Check(v) {
		t.OptimizedBytecode = []string{".pyo"}
	}

	abiFlags := ""
	if pymallocABI.Check(v) {
		abiFlags = "m"
	}

	switch goos {
	case "windows":
		plat, ok := windowsPlatform[goarch]
		if !ok {
			return Table{}, fmt.Errorf("unsupported windows architecture %q", goarch)
		}
		t.Source = append(t.Source, ".pyw")
		t.Extension = []string{
			fmt.Sprintf(".cp%d%d-%s.pyd", major, minor, plat),
			".pyd",
		}
	case "darwin":
		t.Extension = []string{
			fmt.Sprintf(".cpython-%d%d%s-darwin.so", major, minor, abiFlags),
			".abi3.so",
			".so",
		}
	case "linux":
		arch, ok := linuxArch[goarch]
		if !ok {
			return Table{}, fmt.Errorf("unsupported linux architecture %q", goarch)
		}
		t.Extension = []string{
			fmt.Sprintf(".cpython-%d%d%s-%s-linux-gnu.so", major, minor, abiFlags, arch),
			".abi3.so",
			".so",
		}
	default:
		return Table{}, fmt.Errorf("unsupported platform %s/%s", goos, goarch)
	}

	return t, nil
}

const interpreterScript = `
import importlib.machinery as m
import json
import warnings

warnings.simplefilter("ignore")
print(json.dumps({
    "source": m.SOURCE_SUFFIXES,
    "bytecode": m.BYTECODE_SUFFIXES,
    "debug_bytecode": getattr(m, "DEBUG_BYTECODE_SUFFIXES", m.BYTECODE_SUFFIXES),
    "optimized_bytecode": getattr(m, "OPTIMIZED_BYTECODE_SUFFIXES", m.BYTECODE_SUFFIXES),
    "extension": m.EXTENSION_SUFFIXES,
}))
`

// FromInterpreter asks a Python interpreter for its suffix table.
func FromInterpreter(python string) (Table, error) {
	var t Table

	output, err := util.CmdOutput([]string{python, "-c", interpreterScript})
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(output, &t); err != nil {
		return t, fmt.Errorf("%s: decoding suffix table: %w", python, err)
	}
	return t, t.Validate()
}
