// Package app wires the configured scanners and inventory backend
// together for the CLI commands and the server.
package app

import (
	"github.com/zea2/devicemanager/internal/config"
	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/scanner"
	"github.com/zea2/devicemanager/internal/store"
)

// BuildScanner assembles the composite scanner for the host platform.
// Nmap probing and SNMP enrichment are attached when configured.
func BuildScanner(cfg *config.Config) *scanner.Composite {
	usb := scanner.NewUSBScanner(scanner.NewPlatformUSBEnumerator())

	var opts []scanner.LANOption
	if cfg.IsNmapEnabled() {
		runner, err := scanner.NewNmapRunner(cfg.NmapPath)
		if err != nil {
			log.Warn("Nmap not available, active address probing disabled", "error", err)
		} else {
			opts = append(opts, scanner.WithNmap(runner))
		}
	}
	if cfg.SNMPCommunity != "" {
		opts = append(opts, scanner.WithHostProber(scanner.NewSNMPProber(cfg.SNMPCommunity), 8))
	}
	lan := scanner.NewLANScanner(scanner.NewPlatformLANEnumerator(), opts...)

	return scanner.NewComposite(usb, lan)
}

// Inventory is the persistence backend behind the store, either the JSON
// file or the SQLite database, per configuration.
type Inventory struct {
	cfg    *config.Config
	sqlite *store.SQLiteInventory
}

// OpenInventory opens the configured inventory backend.
func OpenInventory(cfg *config.Config) (*Inventory, error) {
	inv := &Inventory{cfg: cfg}
	if cfg.StorageBackend == "sqlite" {
		db, err := store.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		inv.sqlite = db
	}
	return inv, nil
}

// Load fills the store from the backend and re-resolves all addresses.
func (inv *Inventory) Load(s *store.Store) error {
	if inv.sqlite != nil {
		return inv.sqlite.Load(s)
	}
	return s.LoadFile(inv.cfg.InventoryFile)
}

// Save writes the store back to the backend.
func (inv *Inventory) Save(s *store.Store) error {
	if inv.sqlite != nil {
		return inv.sqlite.Save(s)
	}
	return s.SaveFile(inv.cfg.InventoryFile, true)
}

func (inv *Inventory) Close() error {
	if inv.sqlite != nil {
		return inv.sqlite.Close()
	}
	return nil
}

// OpenStore builds the fully wired store: scanners attached, inventory
// loaded. The caller must Close the returned inventory.
func OpenStore(cfg *config.Config) (*store.Store, *Inventory, error) {
	inv, err := OpenInventory(cfg)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(BuildScanner(cfg))
	if err := inv.Load(s); err != nil {
		inv.Close()
		return nil, nil, err
	}
	return s, inv, nil
}
