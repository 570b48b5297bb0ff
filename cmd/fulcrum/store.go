package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/config"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage/sql"
)

// openStore opens and migrates the configured database. SQLite files get
// their parent directory created first.
func openStore(cfg config.DatabaseConfig) (*sql.Store, error) {
	if sql.IsSQLite(cfg.Driver) && !strings.HasPrefix(cfg.DSN, "file:") && cfg.DSN != ":memory:" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sql.New(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}
