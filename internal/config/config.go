// Package config loads the device manager configuration from CLI flags,
// a .env file, environment variables and built-in defaults, in that
// priority order.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	DataDir         string
	InventoryFile   string // path of the JSON inventory (file backend)
	StorageBackend  string // "file" or "sqlite"
	ListenAddr      string
	BearerToken     string
	NmapPath        string // nmap binary; empty searches PATH, "off" disables probing
	SNMPCommunity   string // empty disables SNMP hostname enrichment
	RefreshSchedule string // cron expression for periodic refreshes in server mode
	ConfigFile      string // path of the .env file, if one was loaded
}

// Load merges the configuration sources. Priority, highest first: the
// opts from CLI flags, the .env file, environment variables, defaults.
func Load(opts *Config) *Config {
	cfg := &Config{}

	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := loadFromEnvFile(cfg, envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		} else {
			cfg.ConfigFile = envFile
		}
	}

	cfg.DataDir = coalesce(cfg.DataDir, os.Getenv("DM_DATA_DIR"), "./data")
	cfg.InventoryFile = coalesce(cfg.InventoryFile, os.Getenv("DM_INVENTORY_FILE"), "")
	cfg.StorageBackend = coalesce(cfg.StorageBackend, os.Getenv("DM_STORAGE_BACKEND"), "file")
	cfg.ListenAddr = coalesce(cfg.ListenAddr, os.Getenv("DM_LISTEN_ADDR"), ":8080")
	cfg.BearerToken = coalesce(cfg.BearerToken, os.Getenv("DM_BEARER_TOKEN"), "")
	cfg.NmapPath = coalesce(cfg.NmapPath, os.Getenv("DM_NMAP_PATH"), "")
	cfg.SNMPCommunity = coalesce(cfg.SNMPCommunity, os.Getenv("DM_SNMP_COMMUNITY"), "")
	cfg.RefreshSchedule = coalesce(cfg.RefreshSchedule, os.Getenv("DM_REFRESH_SCHEDULE"), "@every 15m")

	if opts != nil {
		if opts.DataDir != "" {
			cfg.DataDir = opts.DataDir
		}
		if opts.InventoryFile != "" {
			cfg.InventoryFile = opts.InventoryFile
		}
		if opts.StorageBackend != "" {
			cfg.StorageBackend = opts.StorageBackend
		}
		if opts.ListenAddr != "" {
			cfg.ListenAddr = opts.ListenAddr
		}
		if opts.BearerToken != "" {
			cfg.BearerToken = opts.BearerToken
		}
		if opts.NmapPath != "" {
			cfg.NmapPath = opts.NmapPath
		}
		if opts.SNMPCommunity != "" {
			cfg.SNMPCommunity = opts.SNMPCommunity
		}
		if opts.RefreshSchedule != "" {
			cfg.RefreshSchedule = opts.RefreshSchedule
		}
	}

	if cfg.StorageBackend != "file" && cfg.StorageBackend != "sqlite" {
		cfg.StorageBackend = "file"
	}
	if cfg.InventoryFile == "" {
		cfg.InventoryFile = filepath.Join(cfg.DataDir, "devices.json")
	}

	return cfg
}

// loadFromEnvFile reads KEY=VALUE pairs from a .env file.
func loadFromEnvFile(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")

		switch key {
		case "DM_DATA_DIR":
			cfg.DataDir = value
		case "DM_INVENTORY_FILE":
			cfg.InventoryFile = value
		case "DM_STORAGE_BACKEND":
			cfg.StorageBackend = value
		case "DM_LISTEN_ADDR":
			cfg.ListenAddr = value
		case "DM_BEARER_TOKEN":
			cfg.BearerToken = value
		case "DM_NMAP_PATH":
			cfg.NmapPath = value
		case "DM_SNMP_COMMUNITY":
			cfg.SNMPCommunity = value
		case "DM_REFRESH_SCHEDULE":
			cfg.RefreshSchedule = value
		}
	}

	return scanner.Err()
}

// IsAPIAuthEnabled reports whether API requests require a bearer token.
func (c *Config) IsAPIAuthEnabled() bool {
	return c.BearerToken != ""
}

// IsNmapEnabled reports whether active address probing may be used.
func (c *Config) IsNmapEnabled() bool {
	return c.NmapPath != "off"
}

// SQLitePath returns the path of the SQLite inventory database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "devices.db")
}

// String names the configuration source for log output.
func (c *Config) String() string {
	if c.ConfigFile != "" {
		return fmt.Sprintf(".env file (%s)", c.ConfigFile)
	}
	return "environment variables"
}

// coalesce returns the first non-empty value.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
