// Package fsscan finds Python resources in a directory tree.
//
// A scan walks an installed distribution (a standard library, a
// site-packages directory, unpacked eggs) and classifies every file
// into a resource.Resource, computing the dotted name each module or
// data file is reachable under.
//
// Modules are reported as soon as they are seen. Other files are held
// back until the walk is complete: whether foo/data.txt is a resource
// of package foo depends on a foo/__init__.py that may come later in
// walk order, or on a package further up the tree. Data resources are
// therefore always reported after every module.
package fsscan

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/replit/pyscan/internal/resource"
	"github.com/replit/pyscan/internal/suffixes"
	"github.com/replit/pyscan/internal/util"
)

var (
	// ErrNotDirectory is returned when the scan root is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrInvalidPathEncoding is returned for paths that are not valid
	// UTF-8 and so cannot become module names.
	ErrInvalidPathEncoding = errors.New("path is not valid UTF-8")

	// ErrInvalidBytecodePath is returned for a .pyc file directly in a
	// package root, which no Python layout produces.
	ErrInvalidBytecodePath = errors.New("encountered .pyc file with invalid path")
)

// Stats counts what a scan did with the files it walked.
type Stats struct {
	// Files seen by the walk.
	Files int

	// Files excluded as packaging metadata.
	Skipped int

	// Non-module files held for address resolution.
	Pending int

	// Pending files with no enclosing package.
	Dropped int
}

// Scanner is a single pass over a directory tree. It is not safe for
// concurrent use and cannot be restarted; create a new Scanner to scan
// again.
type Scanner struct {
	root       string
	walker     *walker
	registry   *PackageRegistry
	classifier classifier

	walkDone bool
	pending  []pendingFile
	drained  int

	// Sticky: io.EOF once exhausted, or the fatal error.
	err error

	stats Stats
}

// New returns a Scanner over root using table to recognize extension
// modules. Nothing is read until the first call to Next.
func New(root string, table suffixes.Table) *Scanner {
	registry := NewPackageRegistry()
	return &Scanner{
		root:     root,
		walker:   newWalker(root),
		registry: registry,
		classifier: classifier{
			table:    table,
			registry: registry,
		},
	}
}

// Next returns the next resource. It returns io.EOF when the scan is
// complete. Any other error is fatal: the tree cannot be scanned
// reliably, and every later call returns the same error.
func (s *Scanner) Next() (resource.Resource, error) {
	if s.err != nil {
		return nil, s.err
	}

	for !s.walkDone {
		path, err := s.walker.next()
		if err == io.EOF {
			s.walkDone = true
			break
		}
		if err != nil {
			return nil, s.fail(err)
		}
		s.stats.Files++

		r, pending, err := s.resolveEntry(path)
		if err != nil {
			return nil, s.fail(err)
		}
		if pending != nil {
			s.stats.Pending++
			s.pending = append(s.pending, *pending)
			continue
		}
		if r == nil {
			s.stats.Skipped++
			util.Verbosef("skipping metadata file %s", path)
			continue
		}
		return r, nil
	}

	for s.drained < len(s.pending) {
		p := s.pending[s.drained]
		s.pending[s.drained] = pendingFile{}
		s.drained++

		if data, ok := resolve(p, s.registry); ok {
			return data, nil
		}
		s.stats.Dropped++
		util.Verbosef("no package owns %s", p.fullPath)
	}

	s.pending = nil
	s.err = io.EOF
	return nil, io.EOF
}

func (s *Scanner) fail(err error) error {
	s.err = fmt.Errorf("scanning %s: %w", s.root, err)
	return s.err
}

func (s *Scanner) resolveEntry(path string) (resource.Resource, *pendingFile, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return nil, nil, err
	}

	components := strings.Split(rel, string(filepath.Separator))
	for _, c := range components {
		if !utf8.ValidString(c) {
			return nil, nil, fmt.Errorf("%q: %w", path, ErrInvalidPathEncoding)
		}
	}

	e, ok := normalize(components)
	if !ok {
		return nil, nil, nil
	}
	return s.classifier.classify(path, e)
}

// All returns an iterator over the remaining resources. Iteration
// stops after the first error, which is yielded with a nil resource.
func (s *Scanner) All() iter.Seq2[resource.Resource, error] {
	return func(yield func(resource.Resource, error) bool) {
		for {
			r, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

// Registry returns the packages seen so far. It is complete once Next
// has returned io.EOF.
func (s *Scanner) Registry() *PackageRegistry {
	return s.registry
}

// Stats returns counters for the scan so far.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Root returns the directory being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// FindResources scans root and returns every resource in it.
func FindResources(root string, table suffixes.Table) ([]resource.Resource, error) {
	resources := []resource.Resource{}
	for r, err := range New(root, table).All() {
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}
