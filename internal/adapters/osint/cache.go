package osint

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteCache persists fetched indicators so a restart before the first
// successful refresh still recognizes the last good blocklists.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache database.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Save replaces all cached values of the given kind in one transaction.
func (c *SQLiteCache) Save(kind string, values []string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache rewrite: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM indicators WHERE kind = ?", kind); err != nil {
		return fmt.Errorf("clear cached %s indicators: %w", kind, err)
	}

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO indicators (value, kind, fetched_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(time.RFC3339)
	for _, value := range values {
		if _, err := stmt.Exec(value, kind, fetchedAt); err != nil {
			return fmt.Errorf("cache %s indicator: %w", kind, err)
		}
	}

	return tx.Commit()
}

// Load returns the cached values of the given kind.
func (c *SQLiteCache) Load(kind string) ([]string, error) {
	rows, err := c.db.Query("SELECT value FROM indicators WHERE kind = ?", kind)
	if err != nil {
		return nil, fmt.Errorf("load cached %s indicators: %w", kind, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Ensure interface compliance
var _ ports.IndicatorCache = (*SQLiteCache)(nil)
