// Package session allocates and persists the active conversation session
// identifier. Sessions have no end marker; a session is closed only by
// forcing rotation to a fresh identifier.
package session

import (
	"github.com/google/uuid"

	"github.com/HemaCharanPyla/MAX-LLM/internal/history"
	"github.com/HemaCharanPyla/MAX-LLM/internal/logger"
)

const stateKey = "session_id"

// Manager is the single authority for the active session identifier.
// It is not safe for concurrent use; the conversation core is single-writer.
type Manager struct {
	store *history.Store
	id    string
}

// NewManager returns a Manager persisting identifiers through store.
func NewManager(store *history.Store) *Manager {
	return &Manager{store: store}
}

// Current returns the active session identifier, minting and persisting one
// on first use. With a degraded store the identifier is process-local only.
func (m *Manager) Current() string {
	if m.id != "" {
		return m.id
	}
	if v, ok := m.store.GetState(stateKey); ok && v != "" {
		m.id = v
		return m.id
	}
	return m.Rotate(true)
}

// Rotate mints, persists and returns a fresh identifier when force is true,
// unconditionally superseding the old one. Without force it returns the
// existing identifier unchanged.
func (m *Manager) Rotate(force bool) string {
	if !force {
		return m.Current()
	}
	m.id = uuid.NewString()
	m.store.SetState(stateKey, m.id)
	logger.L.Info("session rotated", "session_id", m.id)
	return m.id
}
