// Package library reads and writes the poem library JSON file.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"versecull/internal/model"
)

// Load reads a library file and returns its poems in file order.
// A missing file is not an error: it yields an empty collection.
func Load(path string) ([]model.Poem, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading library: %w", err)
	}

	var poems []model.Poem
	if err := json.Unmarshal(data, &poems); err != nil {
		return nil, fmt.Errorf("parsing library: %w", err)
	}
	return poems, nil
}

// Save writes the poems to the library file using the canonical keys.
// The write goes through a temp file and rename so a crash mid-write
// never truncates the library.
func Save(path string, poems []model.Poem) error {
	if poems == nil {
		poems = []model.Poem{}
	}
	data, err := json.MarshalIndent(poems, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding library: %w", err)
	}
	data = append(data, '\n')

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing library: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing library: %w", err)
	}
	return nil
}
