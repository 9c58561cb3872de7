package history

import "github.com/HemaCharanPyla/MAX-LLM/internal/chat"

// Message represents a single conversational turn persisted in SQLite.
// ID is assigned by the store and carries no meaning to callers beyond
// insertion order; Timestamp is wall-clock milliseconds assigned when the
// turn was accepted. Model records the model variant active at write time.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp int64     `json:"timestamp"`
	Role      chat.Role `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model"`
}
