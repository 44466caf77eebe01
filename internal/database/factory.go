package database

import (
	"fmt"
	"os"
	"path/filepath"

	"kv-go/internal/config"
	"kv-go/internal/kv"
)

// dbFileName is the sqlite file inside data_dir.
const dbFileName = "imports.db"

// NewImportStoreFromConfig creates an ImportStore based on the database config type.
func NewImportStoreFromConfig(cfg config.DatabaseConfig) (kv.ImportStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, dbFileName))
	case "memory":
		return openSQLite(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// openSQLite avoids returning a typed nil inside the interface.
func openSQLite(path string) (kv.ImportStore, error) {
	store, err := NewSQLiteImportStore(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}
