package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open creates (if needed) and opens the SQLite database at dbPath, enables
// WAL mode, and creates the cache and custom-food tables. The caller owns
// the returned handle and must Close it on shutdown.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS nutrition_cache (
	  cache_key  TEXT PRIMARY KEY,
	  source     TEXT NOT NULL,
	  food_id    TEXT NOT NULL,
	  data       TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS search_cache (
	  cache_key  TEXT PRIMARY KEY,
	  source     TEXT NOT NULL,
	  query      TEXT NOT NULL,
	  data       TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS custom_foods (
	  id         TEXT PRIMARY KEY,
	  name       TEXT NOT NULL,
	  brand      TEXT,
	  category   TEXT,
	  data       TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_custom_foods_name ON custom_foods(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_custom_foods_brand ON custom_foods(brand COLLATE NOCASE);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
