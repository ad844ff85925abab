package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

// InitDB initializes the database connection and creates tables if needed
func InitDB() error {
	var err error
	once.Do(func() {
		// Get user's home directory
		homeDir, e := os.UserHomeDir()
		if e != nil {
			err = fmt.Errorf("failed to get home directory: %w", e)
			return
		}

		// Create config directory
		configDir := filepath.Join(homeDir, ".config", "todoscan")
		if e := os.MkdirAll(configDir, 0755); e != nil {
			err = fmt.Errorf("failed to create config directory: %w", e)
			return
		}

		// Open database
		dbPath := filepath.Join(configDir, "todoscan.db")
		db, e = sql.Open("sqlite", dbPath)
		if e != nil {
			err = fmt.Errorf("failed to open database: %w", e)
			return
		}

		// Create tables
		err = createTables()
	})
	return err
}

// GetDB returns the database instance
func GetDB() *sql.DB {
	return db
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// ResetForTesting closes any open handle and clears the singleton so
// tests can reinitialize the database
func ResetForTesting() {
	if db != nil {
		_ = db.Close()
		db = nil
	}
	once = sync.Once{}
}

// createTables creates the necessary database tables
func createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		files_scanned INTEGER NOT NULL,
		findings_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		line INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}
