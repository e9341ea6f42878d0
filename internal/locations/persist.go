package locations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persister stores the saved-location sequence under a single durable key.
type Persister interface {
	// Load returns the persisted sequence; (nil, nil) when nothing is stored.
	Load() ([]Location, error)
	// Save writes the full sequence, replacing whatever was stored.
	Save(locs []Location) error
	// Clear removes the stored record entirely. Distinct from saving an
	// empty sequence.
	Clear() error
}

// FileStore persists the location sequence as one JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed persister at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() ([]Location, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	var locs []Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return locs, nil
}

func (f *FileStore) Save(locs []Location) error {
	data, err := json.Marshal(locs)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(f.path, data, 0o644)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
