// Package history stores the filing audit log in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"filecab/internal/filecab"
	"filecab/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements the filecab.History interface on a SQLite file.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database under dataDir and
// brings its schema up to date.
func Open(dataDir string) (*SQLiteHistory, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	path := filepath.Join(dataDir, "history.db")
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite defaults foreign keys to OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Record appends a filing to the log.
func (h *SQLiteHistory) Record(f *filecab.Filing) error {
	_, err := h.db.Exec(
		`INSERT INTO filings (id, rule_name, source, destination, filed_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.RuleName, f.Source, f.Destination, f.FiledAt,
	)
	if err != nil {
		return fmt.Errorf("recording filing: %w", err)
	}
	return nil
}

// List returns the most recent filings, newest first.
func (h *SQLiteHistory) List(limit int) ([]*filecab.Filing, error) {
	rows, err := h.db.Query(
		`SELECT id, rule_name, source, destination, filed_at FROM filings ORDER BY filed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing filings: %w", err)
	}
	defer rows.Close()

	var out []*filecab.Filing
	for rows.Next() {
		var f filecab.Filing
		if err := rows.Scan(&f.ID, &f.RuleName, &f.Source, &f.Destination, &f.FiledAt); err != nil {
			return nil, fmt.Errorf("scanning filing: %w", err)
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing filings: %w", err)
	}
	return out, nil
}

// Path returns the database file path.
func (h *SQLiteHistory) Path() string { return h.path }

// Close closes the database connection.
func (h *SQLiteHistory) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteHistory implements the core interface.
var _ filecab.History = (*SQLiteHistory)(nil)
