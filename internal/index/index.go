// Package index stores the results of a scan in a sqlite database so
// that resources can be looked up by name without walking the tree
// again.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/replit/pyscan/internal/manifest"
	"github.com/replit/pyscan/internal/resource"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const schema = `
create table resources (
	seq integer primary key,
	kind text not null,
	name text,
	package text,
	stem text,
	relative_name text,
	path text,
	suffix text,
	optimization_level int,
	is_package int
);
create index resources_name_index on resources (name);
create table packages (name text primary key);
`

// Registry is the set of packages found by a scan. It is read once src
// is exhausted.
type Registry interface {
	Names() []string
}

// Build scans every resource from src into a fresh database at path,
// replacing any existing file, then records the names in registry. The
// finished file is made read only. It returns the number of resources
// written.
func Build(ctx context.Context, path string, src resource.Source, registry Registry) (count int, err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "index.build")
	span.SetTag("index.path", path)
	defer func() {
		span.SetTag("index.resources", count)
		span.Finish(tracer.WithError(err))
	}()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return 0, fmt.Errorf("creating schema: %w", err)
	}

	// All rows go in one transaction for speed.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
	insert into resources (
		kind, name, package, stem, relative_name, path, suffix,
		optimization_level, is_package
	) values (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, err
	}
	defer insert.Close()

	for {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}

		e := manifest.FromResource(r)
		_, err = insert.ExecContext(ctx,
			e.Kind, e.Name, e.Package, e.Stem, e.RelativeName, e.Path, e.Suffix,
			e.OptimizationLevel, e.IsPackage)
		if err != nil {
			return 0, fmt.Errorf("%s on %s", err.Error(), e.Path)
		}
		count++
	}

	for _, name := range registry.Names() {
		if _, err := tx.ExecContext(ctx, "insert into packages values (?);", name); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if err := db.Close(); err != nil {
		return 0, err
	}

	return count, os.Chmod(path, 0o444)
}

// lookupCacheSize bounds the number of names whose results are kept
// in memory.
const lookupCacheSize = 1024

// Index is a database written by Build, opened for reading. Lookups
// are cached, since the database never changes once built.
type Index struct {
	db     *sql.DB
	lookup *lru.Cache[string, []manifest.Entry]
}

// Open opens the index at path.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	// Read-only mode, so that sqlite never tries to write next to the
	// file.
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, []manifest.Entry](lookupCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db, lookup: cache}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

// Lookup returns every resource whose name is name, in scan order.
// Several resources share a name when a module has both source and
// bytecode.
func (i *Index) Lookup(ctx context.Context, name string) ([]manifest.Entry, error) {
	if entries, ok := i.lookup.Get(name); ok {
		return entries, nil
	}

	rows, err := i.db.QueryContext(ctx, `
	select kind, name, package, stem, relative_name, path, suffix,
		optimization_level, is_package
	from resources
	where name = ?
	order by seq
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []manifest.Entry{}
	for rows.Next() {
		var e manifest.Entry
		err := rows.Scan(
			&e.Kind, &e.Name, &e.Package, &e.Stem, &e.RelativeName, &e.Path, &e.Suffix,
			&e.OptimizationLevel, &e.IsPackage)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	i.lookup.Add(name, entries)
	return entries, nil
}

// Counts returns the number of resources of each kind. Kinds with no
// resources are absent.
func (i *Index) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := i.db.QueryContext(ctx, "select kind, count(*) from resources group by kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// Packages returns the sorted names of all packages in the index.
func (i *Index) Packages(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, "select name from packages order by name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
