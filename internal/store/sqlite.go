package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/registry"
)

// SQLiteInventory persists the store in a SQLite database, one row per
// name/type pair with the record as JSON. It is the alternative to the
// plain JSON file for setups where the inventory is written often.
type SQLiteInventory struct {
	db   *sql.DB
	path string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS inventory (
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	record     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (name, type)
);`

// OpenSQLite opens (and if needed creates) the inventory database at path.
func OpenSQLite(path string) (*SQLiteInventory, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create inventory directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open inventory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create inventory schema: %w", err)
	}
	log.Debug("Inventory database opened", "path", path)
	return &SQLiteInventory{db: db, path: path}, nil
}

func (inv *SQLiteInventory) Close() error {
	return inv.db.Close()
}

// Save replaces the database content with the store's current records.
func (inv *SQLiteInventory) Save(s *Store) error {
	tx, err := inv.db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin inventory transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM inventory`); err != nil {
		return fmt.Errorf("cannot clear inventory table: %w", err)
	}

	now := time.Now().UTC()
	count := 0
	for name, types := range s.Items() {
		for t, device := range types {
			record, err := json.Marshal(device)
			if err != nil {
				return fmt.Errorf("cannot encode record %q (%s): %w", name, t, err)
			}
			_, err = tx.Exec(
				`INSERT INTO inventory (name, type, record, updated_at) VALUES (?, ?, ?, ?)`,
				name, string(t), string(record), now,
			)
			if err != nil {
				return fmt.Errorf("cannot store record %q (%s): %w", name, t, err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit inventory: %w", err)
	}
	log.Info("Inventory saved", "path", inv.path, "devices", count)
	return nil
}

// Load replaces the store's content with the database rows and then
// re-resolves every record's addresses, matching the JSON codec's load
// semantics.
func (inv *SQLiteInventory) Load(s *Store) error {
	rows, err := inv.db.Query(`SELECT name, type, record FROM inventory ORDER BY name, type`)
	if err != nil {
		return fmt.Errorf("cannot read inventory: %w", err)
	}
	defer rows.Close()

	s.Clear()
	count := 0
	for rows.Next() {
		var name, typeName, record string
		if err := rows.Scan(&name, &typeName, &record); err != nil {
			return fmt.Errorf("cannot read inventory row: %w", err)
		}
		t, err := registry.Resolve(typeName)
		if err != nil {
			return fmt.Errorf("inventory row %q: %w", name, err)
		}
		device, err := registry.New(t)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(record), device); err != nil {
			return fmt.Errorf("inventory row %q (%s): %w", name, t, err)
		}
		if err := s.Set(name, device); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cannot read inventory: %w", err)
	}
	log.Debug("Inventory loaded", "path", inv.path, "devices", count)

	return s.RefreshAll()
}
