package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensource-finance/baobab/internal/domain"
	_ "modernc.org/sqlite"
)

// MemoryPath keeps the SQLite database in process memory.
const MemoryPath = ":memory:"

// Pragmas applied to every SQLite connection. WAL lets the API read stored
// comparisons while the worker writes new ones.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=" + strings.Join(sqlitePragmas, "&_pragma=")
}

// openSQLite opens the pure-Go SQLite driver, creating the parent directory
// of a file database when needed.
func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "./baobab.db"
	}

	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := openDB("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	// Every pooled connection to :memory: would see its own empty database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
