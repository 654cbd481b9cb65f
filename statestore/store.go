package statestore

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Well-known keys. At most one value exists per key.
const (
	// KeyDeviceID holds the opaque stable device identifier. Written once
	// per installation, never mutated afterwards.
	KeyDeviceID = "device_id"

	// KeyActivationCode holds the activation code binding this display to
	// a branch. Overwritten only by an explicit new code.
	KeyActivationCode = "activation_code"
)

const schema = `
CREATE TABLE IF NOT EXISTS device_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Store is a SQLite-backed key-value store for device state.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at path and ensures the
// schema exists. Safe to call on every boot.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("statestore: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statestore: open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: create schema: %w", err)
	}

	slog.Info("statestore: opened", "path", path)

	return &Store{db: db}, nil
}

// Get returns the value for key. The second return value reports whether
// the key was present.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM device_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("statestore: get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO device_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("statestore: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op. This is the
// re-provisioning path: clearing the activation code makes the next boot
// register for a fresh one.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM device_state WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("statestore: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
