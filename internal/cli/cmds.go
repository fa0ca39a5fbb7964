package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/replit/pyscan/internal/fsscan"
	"github.com/replit/pyscan/internal/index"
	"github.com/replit/pyscan/internal/manifest"
	"github.com/replit/pyscan/internal/resource"
	"github.com/replit/pyscan/internal/store"
	"github.com/replit/pyscan/internal/suffixes"
	"github.com/replit/pyscan/internal/table"
	"github.com/replit/pyscan/internal/trace"
	"github.com/replit/pyscan/internal/util"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/yaml.v2"
)

// resourceRow represents one line in the table emitted by 'pyscan
// scan' and 'pyscan lookup'.
type resourceRow struct {
	Kind    string `pretty:"Kind"`
	Name    string `pretty:"Name"`
	Package string `pretty:"Package"`
	Path    string `pretty:"Path"`
}

var kindColors = map[string]*color.Color{
	resource.KindSourceModule.String():    color.New(color.FgGreen),
	resource.KindBytecodeModule.String():  color.New(color.FgBlue),
	resource.KindExtensionModule.String(): color.New(color.FgMagenta),
	resource.KindData.String():            color.New(color.FgYellow),
	resource.KindEggFile.String():         color.New(color.FgCyan),
	resource.KindPthFile.String():         color.New(color.FgCyan),
	resource.KindOtherFile.String():       color.New(color.FgRed),
}

// printEntries prints entries as a table, or logs a message if there
// are none.
func printEntries(entries []manifest.Entry, empty string) error {
	if len(entries) == 0 {
		util.Log("%s", empty)
		return nil
	}

	rows := make([]resourceRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, resourceRow{
			Kind:    e.Kind,
			Name:    e.Name,
			Package: e.Package,
			Path:    e.Path,
		})
	}

	t := table.FromStructs(rows)
	t.ColorColumn("Kind", func(cell string) *color.Color {
		return kindColors[cell]
	})
	return t.Print()
}

// marshal encodes v for a non-table output format.
func marshal(v interface{}, outputFormat outputFormat) []byte {
	var content []byte
	var err error
	switch outputFormat {
	case outputFormatJSON:
		content, err = json.Marshal(v)
		content = append(content, '\n')
	case outputFormatYAML:
		content, err = yaml.Marshal(v)
	default:
		util.Panicf("marshal: unexpected output format %d", outputFormat)
	}
	if err != nil {
		util.Panicf("marshal: %s", err)
	}
	return content
}

// selectSuffixes picks the suffix table: a --suffixes file first, then
// an --interpreter, then the built-in table for --python and
// --platform.
func selectSuffixes(opts suffixOptions) (suffixes.Table, error) {
	if opts.file != "" {
		return suffixes.Load(opts.file)
	}
	if opts.interpreter != "" {
		return suffixes.FromInterpreter(opts.interpreter)
	}
	goos, goarch, err := parsePlatform(opts.platform)
	if err != nil {
		return suffixes.Table{}, err
	}
	return suffixes.Default(opts.python, goos, goarch)
}

func parsePlatform(platform string) (string, string, error) {
	goos, goarch, ok := strings.Cut(platform, "/")
	if !ok || goos == "" || goarch == "" {
		return "", "", fmt.Errorf("invalid platform %q (must be GOOS/GOARCH)", platform)
	}
	return goos, goarch, nil
}

func activeSuffixes(opts suffixOptions) (suffixes.Table, error) {
	t, err := selectSuffixes(opts)
	if err != nil {
		return t, fmt.Errorf("suffix table: %w", err)
	}
	if t.Empty() {
		util.Log("warning: suffix table is empty, no extension modules will be recognized")
	}
	return t, nil
}

// kindFilter returns a predicate selecting the named kinds, or nil if
// kinds is empty.
func kindFilter(kinds []string) (func(resource.Resource) bool, error) {
	if len(kinds) == 0 {
		return nil, nil
	}

	wanted := map[resource.Kind]bool{}
	for _, name := range kinds {
		k, ok := resource.ParseKind(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown resource kind %q", name)
		}
		wanted[k] = true
	}
	return func(r resource.Resource) bool {
		return wanted[r.Kind()]
	}, nil
}

// reportStats logs scan counters when --verbose is set.
func reportStats(s *fsscan.Scanner) {
	stats := s.Stats()
	util.Verbosef(
		"%s: %d files, %d skipped, %d resolved against packages, %d unowned",
		s.Root(), stats.Files, stats.Skipped, stats.Pending-stats.Dropped, stats.Dropped,
	)
}

// errNoMatches is returned by 'pyscan lookup' when no name matched.
var errNoMatches = errors.New("no matching resources")

// finishSpan is deferred by every command so that failed commands
// still report their span.
func finishSpan(span ddtrace.Span, err *error) {
	span.Finish(tracer.WithError(*err))
}

// runScan implements 'pyscan scan'.
func runScan(opts suffixOptions, root string, outputFormat outputFormat, outputFile string, kinds []string) (err error) {
	span, _ := trace.StartSpanFromExistingContext("pyscan scan")
	defer finishSpan(span, &err)

	if outputFile != "" && outputFormat == outputFormatTable {
		return errors.New("--output needs --format json or yaml")
	}

	filter, err := kindFilter(kinds)
	if err != nil {
		return err
	}
	suffixTable, err := activeSuffixes(opts)
	if err != nil {
		return err
	}

	scanner := fsscan.New(root, suffixTable)
	entries, err := manifest.Collect(scanner, filter)
	if err != nil {
		return err
	}
	reportStats(scanner)

	if outputFormat == outputFormatTable {
		return printEntries(entries, "no resources found")
	}

	format, err := manifest.ParseFormat(outputFormat.String())
	if err != nil {
		return err
	}
	if outputFile != "" {
		util.ProgressMsg(fmt.Sprintf("writing %d resources to %s", len(entries), outputFile))
		return manifest.Write(outputFile, entries, format)
	}

	content, err := manifest.Marshal(entries, format)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(content)
	return err
}

// runModules implements 'pyscan modules'.
func runModules(opts suffixOptions, root string) (err error) {
	span, ctx := trace.StartSpanFromExistingContext("pyscan modules")
	defer finishSpan(span, &err)

	suffixTable, err := activeSuffixes(opts)
	if err != nil {
		return err
	}
	modules, err := fsscan.FindModules(ctx, root, suffixTable)
	if err != nil {
		return err
	}
	if modules.Len() == 0 {
		util.Log("no modules found")
		return nil
	}

	t := table.New("Module", "Bytes")
	for _, name := range modules.Names() {
		source, _ := modules.Get(name)
		t.AddRow(name, strconv.Itoa(len(source)))
	}
	return t.Print()
}

// replay is a resource.Source over resources that were already
// scanned.
type replay struct {
	resources []resource.Resource
}

func (r *replay) Next() (resource.Resource, error) {
	if len(r.resources) == 0 {
		return nil, io.EOF
	}
	next := r.resources[0]
	r.resources = r.resources[1:]
	return next, nil
}

// runIndex implements 'pyscan index'.
func runIndex(opts suffixOptions, root string, dbFile string, force bool) (err error) {
	span, ctx := trace.StartSpanFromExistingContext("pyscan index")
	defer finishSpan(span, &err)

	suffixTable, err := activeSuffixes(opts)
	if err != nil {
		return err
	}

	scanner := fsscan.New(root, suffixTable)
	var resources []resource.Resource
	var entries []manifest.Entry
	for r, err := range scanner.All() {
		if err != nil {
			return err
		}
		resources = append(resources, r)
		entries = append(entries, manifest.FromResource(r))
	}
	reportStats(scanner)

	content, err := manifest.Marshal(entries, manifest.FormatJSON)
	if err != nil {
		return err
	}

	st, err := store.Read()
	if err != nil {
		return err
	}
	if !force && st.IsIndexCurrent(root, content, dbFile) {
		n, _ := st.IndexedResources(root)
		util.Log("%s is up to date (%d resources)", dbFile, n)
		return nil
	}

	util.ProgressMsg(fmt.Sprintf("indexing %d resources into %s", len(resources), dbFile))
	count, err := index.Build(ctx, dbFile, &replay{resources: resources}, scanner.Registry())
	if err != nil {
		return fmt.Errorf("%s: %w", dbFile, err)
	}
	return st.Update(root, content, dbFile, count)
}

// runLookup implements 'pyscan lookup'.
func runLookup(dbFile string, names []string) (err error) {
	span, ctx := trace.StartSpanFromExistingContext("pyscan lookup")
	defer finishSpan(span, &err)

	idx, err := index.Open(dbFile)
	if err != nil {
		return err
	}
	defer idx.Close()

	var entries []manifest.Entry
	for _, name := range names {
		found, err := idx.Lookup(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", dbFile, err)
		}
		if len(found) == 0 {
			util.Log("no resource named %s", name)
		}
		entries = append(entries, found...)
	}

	if len(entries) == 0 {
		return errNoMatches
	}
	return printEntries(entries, "")
}

// runStats implements 'pyscan stats'.
func runStats(dbFile string) (err error) {
	span, ctx := trace.StartSpanFromExistingContext("pyscan stats")
	defer finishSpan(span, &err)

	idx, err := index.Open(dbFile)
	if err != nil {
		return err
	}
	defer idx.Close()

	counts, err := idx.Counts(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", dbFile, err)
	}

	t := table.New("Kind", "Count")
	for k := resource.KindSourceModule; k <= resource.KindOtherFile; k++ {
		if n, ok := counts[k.String()]; ok {
			t.AddRow(k.String(), strconv.Itoa(n))
		}
	}
	t.ColorColumn("Kind", func(cell string) *color.Color {
		return kindColors[cell]
	})
	return t.Print()
}

// runPackages implements 'pyscan packages'.
func runPackages(opts suffixOptions, root string, dbFile string) (err error) {
	span, ctx := trace.StartSpanFromExistingContext("pyscan packages")
	defer finishSpan(span, &err)

	if (root == "") == (dbFile == "") {
		return errors.New("specify exactly one of ROOT and --db")
	}

	var names []string
	if dbFile != "" {
		idx, err := index.Open(dbFile)
		if err != nil {
			return err
		}
		defer idx.Close()

		names, err = idx.Packages(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", dbFile, err)
		}
	} else {
		suffixTable, err := activeSuffixes(opts)
		if err != nil {
			return err
		}
		scanner := fsscan.New(root, suffixTable)
		for _, err := range scanner.All() {
			if err != nil {
				return err
			}
		}
		reportStats(scanner)
		names = scanner.Registry().Names()
	}

	for _, name := range names {
		if name == "" {
			// The package root itself is a package.
			name = "."
		}
		fmt.Println(name)
	}
	return nil
}

// runSuffixes implements 'pyscan suffixes'.
func runSuffixes(opts suffixOptions, outputFormat outputFormat) error {
	t, err := activeSuffixes(opts)
	if err != nil {
		return err
	}

	switch outputFormat {
	case outputFormatTable:
		out := table.New("Category", "Suffixes")
		out.AddRow("source", strings.Join(t.Source, ", "))
		out.AddRow("bytecode", strings.Join(t.Bytecode, ", "))
		out.AddRow("debug bytecode", strings.Join(t.DebugBytecode, ", "))
		out.AddRow("optimized bytecode", strings.Join(t.OptimizedBytecode, ", "))
		out.AddRow("extension", strings.Join(t.Extension, ", "))
		return out.Print()
	}

	_, err = os.Stdout.Write(marshal(t, outputFormat))
	return err
}
