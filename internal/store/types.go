package store

// hash is used in the store to represent a serializable MD5 hash.
type hash string

type storeRoot struct {

	// The hash of the JSON manifest of the last indexed scan, or
	// an empty string if the root was never indexed.
	ManifestHash hash `json:"manifestHash,omitempty"`

	// Absolute path of the index built from that scan.
	IndexPath string `json:"indexPath,omitempty"`

	// Number of resources written to the index.
	Resources int `json:"resources,omitempty"`
}

// Store represents the JSON written (by default) to
// .pyscan/store.json.
type Store struct {

	// The version of the store file. This gets incremented every
	// time we make a backwards-incompatible change, and causes
	// the store to be invalidated.
	Version int `json:"version,omitempty"`

	// Map from absolute scan roots to per-root data.
	Roots map[string]*storeRoot `json:"roots,omitempty"`
}
