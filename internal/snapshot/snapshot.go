// Package snapshot persists the overwrite-in-place resume state: the live
// conversation plus the active model, written after every accepted turn and
// read synchronously at startup so the client never waits on the full store.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/HemaCharanPyla/MAX-LLM/internal/chat"
	"github.com/HemaCharanPyla/MAX-LLM/internal/history"
	"github.com/HemaCharanPyla/MAX-LLM/internal/logger"
)

const stateKey = "snapshot"

type payload struct {
	ChatHistory  []chat.Turn `json:"chatHistory"`
	CurrentModel string      `json:"currentModel"`
	Timestamp    int64       `json:"timestamp"`
}

// Cache is the single-slot resume snapshot. It is not an audit log: every
// Save overwrites the previous state and it never carries more than one
// session's live history.
type Cache struct {
	store *history.Store
}

// NewCache returns a Cache persisting through store.
func NewCache(store *history.Store) *Cache {
	return &Cache{store: store}
}

// Save overwrites the snapshot slot with the given live history and model.
// Safe to call after every turn; the slot is always exactly one record.
func (c *Cache) Save(live []chat.Turn, model string) {
	b, err := json.Marshal(payload{
		ChatHistory:  live,
		CurrentModel: model,
		Timestamp:    time.Now().UnixMilli(),
	})
	if err != nil {
		logger.L.Error("failed to encode snapshot", "error", err)
		return
	}
	c.store.SetState(stateKey, string(b))
}

// Load reads the snapshot slot. ok is false on first run, with a degraded
// store, or when the payload does not parse; an unparseable payload is
// logged and degrades to empty state rather than propagating an error.
func (c *Cache) Load() (live []chat.Turn, model string, ok bool) {
	raw, ok := c.store.GetState(stateKey)
	if !ok {
		return nil, "", false
	}
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logger.L.Warn("snapshot payload unreadable; starting empty", "error", err)
		return nil, "", false
	}
	return p.ChatHistory, p.CurrentModel, true
}

// Clear erases the snapshot slot.
func (c *Cache) Clear() {
	c.store.DeleteState(stateKey)
}
