package history

import (
	"database/sql"
	"errors"

	"github.com/HemaCharanPyla/MAX-LLM/internal/logger"
)

// GetState returns the value stored under key. ok is false when the slot is
// absent, the store is degraded, or the read fails.
func (s *Store) GetState(key string) (value string, ok bool) {
	if s.db == nil {
		return "", false
	}
	err := s.db.QueryRow(`SELECT value FROM state WHERE key = ?;`, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.L.Error("failed to read state slot", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

// SetState overwrites the slot named key. Failures are logged and swallowed.
func (s *Store) SetState(key, value string) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO state (key, value) VALUES (?,?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, key, value)
	if err != nil {
		logger.L.Error("failed to write state slot", "key", key, "error", err)
	}
}

// DeleteState erases the slot named key. Failures are logged and swallowed.
func (s *Store) DeleteState(key string) {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM state WHERE key = ?;`, key); err != nil {
		logger.L.Error("failed to delete state slot", "key", key, "error", err)
	}
}
