package fsscan

import (
	"context"
	"fmt"
	"sort"

	"github.com/replit/pyscan/internal/resource"
	"github.com/replit/pyscan/internal/suffixes"
	"golang.org/x/sync/errgroup"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Number of module sources read concurrently by FindModules.
const moduleReadConcurrency = 8

// ModuleSources maps dotted module names to their source code, ordered
// by name.
type ModuleSources struct {
	names   []string
	sources map[string][]byte
}

// Names returns the module names in lexical order.
func (m *ModuleSources) Names() []string {
	return m.names
}

func (m *ModuleSources) Get(name string) ([]byte, bool) {
	source, ok := m.sources[name]
	return source, ok
}

func (m *ModuleSources) Len() int {
	return len(m.names)
}

// FindModules scans root and reads the source of every .py module in
// it. When two files map to the same module name, the one found later
// in the scan wins.
func FindModules(ctx context.Context, root string, table suffixes.Table) (_ *ModuleSources, err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "FindModules")
	defer func() { span.Finish(tracer.WithError(err)) }()

	var modules []resource.SourceModule
	for r, err := range New(root, table).All() {
		if err != nil {
			return nil, err
		}
		if m, ok := r.(resource.SourceModule); ok {
			modules = append(modules, m)
		}
	}

	contents := make([][]byte, len(modules))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(moduleReadConcurrency)
	for i, m := range modules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := m.Source.Resolve()
			if err != nil {
				return fmt.Errorf("reading module %s: %w", m.Name, err)
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sources := make(map[string][]byte, len(modules))
	for i, m := range modules {
		sources[m.Name] = contents[i]
	}
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	return &ModuleSources{names: names, sources: sources}, nil
}
