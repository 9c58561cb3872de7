// Package window builds the bounded message sequence submitted to the
// completion provider and estimates its size against the token budget.
// Truncation here affects only what is sent; it never touches what the
// store persisted.
package window

import (
	"github.com/sashabaranov/go-openai"

	"github.com/HemaCharanPyla/MAX-LLM/internal/chat"
)

// SystemPrompt is the fixed instruction prepended to every outgoing window.
const SystemPrompt = "You are a helpful AI assistant. Please respond to the user's request accurately and concisely."

const (
	// MaxHistoryTurns caps how many trailing live-history turns are included.
	MaxHistoryTurns = 10
	// TokenBudget is the hard ceiling on a window's estimated size. Past it
	// the turn is rejected outright; there is no partial-window retry.
	TokenBudget = 1000

	charsPerToken = 4
)

// Build assembles the outgoing payload: the system prompt, then the last
// MaxHistoryTurns turns of live history (oldest first, plain suffix
// truncation, neither role- nor token-aware), then the new user turn.
// Error turns never reach live history, so Build does not filter roles.
func Build(live []chat.Turn, newUserContent string) []openai.ChatCompletionMessage {
	if len(live) > MaxHistoryTurns {
		live = live[len(live)-MaxHistoryTurns:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(live)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	})
	for _, turn := range live {
		role := openai.ChatMessageRoleUser
		if turn.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: newUserContent,
	})
	return msgs
}

// EstimateTokens coarsely estimates the token count of msgs: total content
// length divided by four, rounded up. It is not a tokenizer; it gates a UX
// warning, not correctness. An empty sequence estimates to zero.
func EstimateTokens(msgs []openai.ChatCompletionMessage) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
	}
	return (total + charsPerToken - 1) / charsPerToken
}

// Exceeds reports whether msgs is past the token budget.
func Exceeds(msgs []openai.ChatCompletionMessage) bool {
	return EstimateTokens(msgs) > TokenBudget
}
