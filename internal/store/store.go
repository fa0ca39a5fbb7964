// Package store remembers which scan roots have been indexed, so that
// an index is only rebuilt when the scanned tree changes.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/replit/pyscan/internal/util"
)

const currentVersion = 1

func getStoreLocation() string {
	loc, ok := os.LookupEnv("PYSCAN_STORE")
	if ok {
		return loc
	} else {
		return ".pyscan/store.json"
	}
}

// Read loads the store, returning an empty one if the file does not
// exist or was written by an incompatible version.
func Read() (*Store, error) {
	filename := getStoreLocation()
	bytes, err := os.ReadFile(filename)

	if err != nil {
		if os.IsNotExist(err) {
			return &Store{Version: currentVersion}, nil
		}
		return nil, err
	}

	var st Store
	err = json.Unmarshal(bytes, &st)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if st.Version != currentVersion {
		util.Verbosef("discarding store %s with version %d", filename, st.Version)
		return &Store{Version: currentVersion}, nil
	}

	return &st, nil
}

func (st *Store) Write() error {
	filename, err := filepath.Abs(getStoreLocation())
	if err != nil {
		return err
	}

	content, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		util.Panicf("writeStore: json.MarshalIndent failed: %s", err)
	}
	content = append(content, '\n')

	return util.WriteAtomic(filename, content)
}

// rootKey identifies a path in the store. It falls back to the path
// as given if the working directory is unknown.
func rootKey(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}

// IsIndexCurrent reports whether the index at indexPath was built from
// a scan of root that produced exactly manifest, and still exists.
func (st *Store) IsIndexCurrent(root string, manifest []byte, indexPath string) bool {
	r, ok := st.Roots[rootKey(root)]
	if !ok || r.ManifestHash == "" {
		return false
	}
	return r.ManifestHash == hashBytes(manifest) &&
		r.IndexPath == rootKey(indexPath) &&
		util.FileExists(indexPath)
}

// Update records that root was indexed into indexPath, then writes the
// store.
func (st *Store) Update(root string, manifest []byte, indexPath string, resources int) error {
	if st.Roots == nil {
		st.Roots = map[string]*storeRoot{}
	}
	st.Version = currentVersion
	st.Roots[rootKey(root)] = &storeRoot{
		ManifestHash: hashBytes(manifest),
		IndexPath:    rootKey(indexPath),
		Resources:    resources,
	}

	return st.Write()
}

// IndexedResources returns the number of resources recorded for root's
// index, or false if root was never indexed.
func (st *Store) IndexedResources(root string) (int, bool) {
	r, ok := st.Roots[rootKey(root)]
	if !ok {
		return 0, false
	}
	return r.Resources, true
}
