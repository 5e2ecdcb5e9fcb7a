// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Well-known LocalStore keys.
const (
	KeyToken     = "token"
	KeyUserID    = "id"
	KeyEmail     = "email"
	KeyPortalURL = "portal_url"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// LocalStore is the client-side session store.
type LocalStore struct {
	db *sql.DB
}

// OpenLocal opens the local store at path.
func OpenLocal(path string) (*LocalStore, error) {
	db, err := openDB(path, localSchema)
	if err != nil {
		return nil, err
	}
	return &LocalStore{db: db}, nil
}

// Close closes the database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Set stores value under key, replacing any previous value.
func (s *LocalStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrDatabaseError, key, err)
	}
	return nil
}

// Get returns the value under key. ok is false when the key is absent.
func (s *LocalStore) Get(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrDatabaseError, key, err)
	}
	return value, true, nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *LocalStore) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrDatabaseError, key, err)
	}
	return nil
}

// Keys returns every stored key in sorted order.
func (s *LocalStore) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", ErrDatabaseError, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ClearAll removes every key. Idempotent.
func (s *LocalStore) ClearAll() error {
	if _, err := s.db.Exec("DELETE FROM kv"); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrDatabaseError, err)
	}
	return nil
}
