package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/registry"
)

// Save writes the inventory as nested JSON: device name, then device type,
// then the record. Unset record fields are omitted. With pretty set the
// output is indented for humans.
func (s *Store) Save(w io.Writer, pretty bool) error {
	nested := s.Items()

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(nested); err != nil {
		return fmt.Errorf("cannot encode inventory: %w", err)
	}
	return nil
}

// Load reads an inventory written by Save. With clear set the current
// content is dropped first, otherwise loaded records are merged in, each
// overwriting any stored record of the same name and type.
//
// Persisted addresses are treated as hints only: after loading, every
// record is re-resolved by identity against the live device state. Records
// whose device cannot be found come back with cleared addresses.
func (s *Store) Load(r io.Reader, clear bool) error {
	var nested map[string]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&nested); err != nil {
		return fmt.Errorf("cannot decode inventory: %w", err)
	}

	if clear {
		s.Clear()
	}

	count := 0
	for name, types := range nested {
		for typeName, raw := range types {
			t, err := registry.Resolve(typeName)
			if err != nil {
				return fmt.Errorf("inventory entry %q: %w", name, err)
			}
			device, err := registry.New(t)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, device); err != nil {
				return fmt.Errorf("inventory entry %q (%s): %w", name, t, err)
			}
			if err := s.Set(name, device); err != nil {
				return err
			}
			count++
		}
	}
	log.Debug("Inventory loaded", "devices", count)

	return s.RefreshAll()
}

// SaveFile atomically writes the inventory to path, creating parent
// directories as needed.
func (s *Store) SaveFile(path string, pretty bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create inventory directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create inventory file: %w", err)
	}
	if err := s.Save(f, pretty); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cannot replace inventory file: %w", err)
	}
	log.Info("Inventory saved", "path", path, "devices", s.Len())
	return nil
}

// LoadFile loads the inventory from path, replacing the current content.
// A missing file is not an error, it just leaves the store empty.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("No inventory file yet", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open inventory file: %w", err)
	}
	defer f.Close()
	return s.Load(f, true)
}
