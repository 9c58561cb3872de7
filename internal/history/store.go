// Package history provides SQLite-based persistence for the conversation log:
// an append-only message table indexed by session, plus two key-value slots
// (active session id, resume snapshot). If opening the DB or creating the
// schema fails, the store degrades to a handle that silently no-ops on every
// operation; durability is best-effort and never blocks the chat flow.
package history

import (
	"database/sql"
	"os"

	_ "github.com/glebarez/go-sqlite"

	"github.com/HemaCharanPyla/MAX-LLM/internal/chat"
	"github.com/HemaCharanPyla/MAX-LLM/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    timestamp INTEGER,
    role TEXT,
    content TEXT,
    model TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
CREATE TABLE IF NOT EXISTS state (
    key TEXT PRIMARY KEY,
    value TEXT
);`

// Store is the durable conversation log. The zero value is a degraded store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path. The
// HISTORY_DB_PATH environment variable overrides path; with neither set,
// history.db in the working directory is used. Open never fails from the
// caller's point of view: on any engine error it logs a warning and returns
// a degraded store.
func Open(path string) *Store {
	if env := os.Getenv("HISTORY_DB_PATH"); env != "" {
		path = env
	}
	if path == "" {
		path = "history.db"
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		logger.L.Warn("sqlite open failed; history persistence disabled", "error", err)
		return &Store{}
	}
	if _, err := db.Exec(schema); err != nil {
		logger.L.Warn("sqlite schema creation failed; history persistence disabled", "error", err)
		db.Close()
		return &Store{}
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	return &Store{db: db}
}

// Degraded reports whether the store is operating without a storage engine.
func (s *Store) Degraded() bool {
	return s.db == nil
}

// Append stores one message, assigning its id. Failures (quota, engine
// errors) are logged and swallowed; the caller's in-memory history is the
// source of truth for the live conversation either way.
func (s *Store) Append(msg Message) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO messages (session_id, timestamp, role, content, model) VALUES (?,?,?,?,?);`,
		msg.SessionID, msg.Timestamp, string(msg.Role), msg.Content, msg.Model)
	if err != nil {
		logger.L.Error("failed to store message", "error", err)
	}
}

// ScanAll returns every stored message across all sessions in primary-key
// order. A degraded store, or any query error, yields nil.
func (s *Store) ScanAll() []Message {
	if s.db == nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT id, session_id, timestamp, role, content, model FROM messages ORDER BY id ASC;`)
	if err != nil {
		logger.L.Error("history scan failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Timestamp, &role, &m.Content, &m.Model); err != nil {
			logger.L.Error("history row scan failed", "error", err)
			continue
		}
		m.Role = chat.Role(role)
		out = append(out, m)
	}
	return out
}

// Clear deletes every stored message. Individual records are never deleted;
// this bulk destruction exists only for the reset-conversation flow.
func (s *Store) Clear() {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM messages;`); err != nil {
		logger.L.Error("failed to clear history", "error", err)
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
