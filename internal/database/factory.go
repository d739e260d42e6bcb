package database

import (
	"fmt"
	"os"
	"path/filepath"

	"sproutbook/internal/config"
)

// NewDatabaseFromConfig creates a database connection based on the provided
// configuration. Supported types are "sqlite" (file-backed, under
// Database.DataDir) and "memory" (in-memory, for tests and dry runs).
func NewDatabaseFromConfig(cfg *config.Config) (*DB, error) {
	switch cfg.Database.Type {
	case "sqlite":
		if cfg.Database.DataDir == "" {
			return nil, fmt.Errorf("database data_dir is required for type sqlite")
		}
		if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return Open(filepath.Join(cfg.Database.DataDir, "sproutbook.db"))
	case "memory":
		return Open(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Database.Type)
	}
}
