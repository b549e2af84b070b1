package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LocalStorage is a string key/value store persisted in the local_storage table.
//
// It mirrors the getItem/setItem/removeItem contract of browser storage: values survive restarts until removed.
type LocalStorage struct {
	db *sql.DB
}

// NewLocalStorage creates a new [LocalStorage] with the given database connection
func NewLocalStorage(db *sql.DB) *LocalStorage {
	return &LocalStorage{db: db}
}

// GetItem returns the value stored under key and whether it was present.
func (s *LocalStorage) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *LocalStorage) SetItem(key, value string) error {
	query := `
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *LocalStorage) RemoveItem(key string) error {
	if _, err := s.db.Exec("DELETE FROM local_storage WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in ascending order.
func (s *LocalStorage) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM local_storage ORDER BY key ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return keys, nil
}

// Clear removes every key.
func (s *LocalStorage) Clear() error {
	if _, err := s.db.Exec("DELETE FROM local_storage"); err != nil {
		return fmt.Errorf("failed to clear local storage: %w", err)
	}
	return nil
}
