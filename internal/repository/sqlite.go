package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caterdispatch/tally/internal/domain"
	_ "modernc.org/sqlite"
)

// sqlitePragmas tune the single-writer workload: WAL keeps calculations
// reading while history writes land, busy_timeout covers the worker and the
// API sharing one file.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
}

// openSQLite opens a SQLite connection via modernc.org/sqlite (pure Go, no
// CGO). The path default lives in domain.DefaultConfig.
func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("%w: sqlite path is not configured", ErrInvalidInput)
	}

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var dsn strings.Builder
	dsn.WriteString("file:")
	dsn.WriteString(cfg.SQLitePath)
	for i, p := range sqlitePragmas {
		if i == 0 {
			dsn.WriteString("?_pragma=")
		} else {
			dsn.WriteString("&_pragma=")
		}
		dsn.WriteString(p)
	}

	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}
