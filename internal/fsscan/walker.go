package fsscan

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// walker is a lazy depth-first traversal yielding the paths of
// non-directory entries. Siblings are visited in filename order, so two
// walks over an unchanged tree produce the same sequence.
//
// Symlinks are not followed. A symlink to a directory is skipped; any
// other symlink is yielded like a file.
type walker struct {
	root    string
	started bool
	stack   []*dirListing
}

type dirListing struct {
	dir     string
	entries []fs.DirEntry
	next    int
}

func newWalker(root string) *walker {
	return &walker{root: root}
}

// next returns the path of the next file, or io.EOF once the tree is
// exhausted. Any other error means the walk cannot continue.
func (w *walker) next() (string, error) {
	if !w.started {
		w.started = true

		info, err := os.Stat(w.root)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s: %w", w.root, ErrNotDirectory)
		}
		if err := w.push(w.root); err != nil {
			return "", err
		}
	}

	for len(w.stack) > 0 {
		top := w.stack[len(w.stack)-1]
		if top.next >= len(top.entries) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		entry := top.entries[top.next]
		top.next++
		p := filepath.Join(top.dir, entry.Name())

		switch {
		case entry.IsDir():
			if err := w.push(p); err != nil {
				return "", err
			}
		case entry.Type()&fs.ModeSymlink != 0:
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				continue
			}
			return p, nil
		default:
			return p, nil
		}
	}

	return "", io.EOF
}

// push lists dir and makes it the current directory of the walk.
// os.ReadDir returns entries sorted by filename.
func (w *walker) push(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}
	w.stack = append(w.stack, &dirListing{dir: dir, entries: entries})
	return nil
}
