package vars

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver for the on-disk variable snapshot.
	_ "github.com/mattn/go-sqlite3"
)

const persistTimeout = 5 * time.Second

// FileStore persists manual variables between sessions in a SQLite file.
// It is a collaborator of Store, never the source of truth: callers Load
// into a Store at startup and Save after edits.
type FileStore struct {
	db *sql.DB
}

// OpenFileStore opens (creating if needed) the variable snapshot at path.
func OpenFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening variable store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS variables (
			name  TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing variable store: %w", err)
	}

	return &FileStore{db: db}, nil
}

// Close releases the underlying database handle.
func (f *FileStore) Close() error {
	return f.db.Close()
}

// Load returns all persisted variables. Values are stored JSON-encoded so
// numbers, booleans and composites round-trip.
func (f *FileStore) Load() (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	rows, err := f.db.QueryContext(ctx, `SELECT name, value FROM variables`)
	if err != nil {
		return nil, fmt.Errorf("loading variables: %w", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var name, encoded string
		if err := rows.Scan(&name, &encoded); err != nil {
			return nil, fmt.Errorf("scanning variable row: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			// Rows written by hand may hold bare strings.
			value = encoded
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Save writes one variable, overwriting any previous value.
func (f *FileStore) Save(name string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding variable %q: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	_, err = f.db.ExecContext(ctx,
		`INSERT INTO variables (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, string(encoded))
	if err != nil {
		return fmt.Errorf("saving variable %q: %w", name, err)
	}
	return nil
}

// Delete removes one variable. Deleting an absent name is a no-op.
func (f *FileStore) Delete(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	_, err := f.db.ExecContext(ctx, `DELETE FROM variables WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting variable %q: %w", name, err)
	}
	return nil
}

// Clear removes every persisted variable.
func (f *FileStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := f.db.ExecContext(ctx, `DELETE FROM variables`); err != nil {
		return fmt.Errorf("clearing variables: %w", err)
	}
	return nil
}
