// Package agent owns the live conversation. It accepts turns, persists them
// best-effort through the durable store and the snapshot, drives the provider
// round trip for a submitted turn, and exposes the read surfaces the UI and
// network layers consume.
package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/HemaCharanPyla/MAX-LLM/internal/chat"
	"github.com/HemaCharanPyla/MAX-LLM/internal/config"
	"github.com/HemaCharanPyla/MAX-LLM/internal/history"
	"github.com/HemaCharanPyla/MAX-LLM/internal/llm"
	"github.com/HemaCharanPyla/MAX-LLM/internal/logger"
	"github.com/HemaCharanPyla/MAX-LLM/internal/session"
	"github.com/HemaCharanPyla/MAX-LLM/internal/snapshot"
	"github.com/HemaCharanPyla/MAX-LLM/internal/window"
)

// ErrContextTooLarge is returned when the outgoing window exceeds the token
// budget. It is the only condition surfaced across the core boundary: the
// user must decide to clear the conversation, the core cannot unilaterally.
var ErrContextTooLarge = errors.New("conversation too long: clear it to continue")

// DefaultModel is used when neither the snapshot nor the config names a model.
const DefaultModel = "gpt-4o"

// FSM states for the send-turn lifecycle.
type FSMState stateless.State

var (
	StateBuildingWindow      FSMState = "BuildingWindow"
	StateAwaitingLLMResponse FSMState = "AwaitingLLMResponse"
	StatePersisting          FSMState = "Persisting"
	StateDone                FSMState = "Done"     // Terminal: reply persisted
	StateRejected            FSMState = "Rejected" // Terminal: window over budget
	StateError               FSMState = "Error"    // Terminal: provider failure
)

// FSM triggers.
type FSMTrigger stateless.Trigger

var (
	TriggerProcessTurn    FSMTrigger = "ProcessTurn"
	TriggerWindowAccepted FSMTrigger = "WindowAccepted"
	TriggerWindowTooLarge FSMTrigger = "WindowTooLarge"
	TriggerLLMResponded   FSMTrigger = "LLMResponded"
	TriggerReplyPersisted FSMTrigger = "ReplyPersisted"
	TriggerErrorOccurred  FSMTrigger = "ErrorOccurred"
)

// Export is a point-in-time read of the live conversation plus metadata.
// Serialization is the caller's concern.
type Export struct {
	Timestamp int64       `json:"timestamp"`
	Model     string      `json:"model"`
	Messages  []chat.Turn `json:"messages"`
}

// Agent is the session controller. It is the sole owner of the live history
// and is not safe for concurrent use; callers serialize access (one writer,
// one reader context).
type Agent struct {
	llmClient llm.Client
	store     *history.Store
	sessions  *session.Manager
	snap      *snapshot.Cache

	live  []chat.Turn
	model string
}

// New constructs the conversation controller. The snapshot is read
// synchronously so the previous conversation is shown instantly; the durable
// store is consulted only on demand afterwards. Snapshot absence or
// corruption falls back to an empty history and the configured (or default)
// model.
func New(llmClient llm.Client, store *history.Store, sessions *session.Manager, snap *snapshot.Cache, cfg config.LLMConfig) *Agent {
	a := &Agent{
		llmClient: llmClient,
		store:     store,
		sessions:  sessions,
		snap:      snap,
	}
	if live, model, ok := snap.Load(); ok {
		a.live = live
		a.model = model
	}
	if a.model == "" {
		a.model = cfg.Model
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	return a
}

// AppendTurn records one accepted turn: live history first, then the durable
// store and the snapshot, both best-effort. Error turns are excluded from
// live history and from both persistence tiers by policy; the UI shows them
// transiently on its own.
func (a *Agent) AppendTurn(role chat.Role, content string) {
	if role == chat.RoleError {
		logger.L.Debug("error turn not recorded")
		return
	}
	a.live = append(a.live, chat.Turn{Role: role, Content: content})
	a.store.Append(history.Message{
		SessionID: a.sessions.Current(),
		Timestamp: time.Now().UnixMilli(),
		Role:      role,
		Content:   content,
		Model:     a.model,
	})
	a.snap.Save(a.live, a.model)
}

// LiveHistory returns the conversation currently shown to the user.
func (a *Agent) LiveHistory() []chat.Turn {
	return slices.Clone(a.live)
}

// Model returns the active model identifier.
func (a *Agent) Model() string {
	return a.model
}

// SetModel switches the active model and snapshots the change so it survives
// restart.
func (a *Agent) SetModel(id string) {
	a.model = id
	a.snap.Save(a.live, a.model)
}

// BuildOutgoing assembles the provider payload for a new user turn without
// mutating any state. It returns ErrContextTooLarge when the window is past
// budget; in that case nothing has been appended anywhere.
func (a *Agent) BuildOutgoing(newContent string) ([]openai.ChatCompletionMessage, error) {
	msgs := window.Build(a.live, newContent)
	if window.Exceeds(msgs) {
		return nil, ErrContextTooLarge
	}
	return msgs, nil
}

// Reset clears the conversation: store, then snapshot, then a forced
// identifier rotation. The three writes are deliberately not atomic; a crash
// mid-sequence leaves a partial reset (at worst orphaned records under the
// old identifier), which the reconstructor tolerates.
func (a *Agent) Reset() {
	a.live = nil
	a.store.Clear()
	a.snap.Clear()
	a.sessions.Rotate(true)
	logger.L.Info("conversation reset", "session_id", a.sessions.Current())
}

// ExportConversation returns the live conversation plus metadata for the
// caller to serialize. Pure read; no persistence involved.
func (a *Agent) ExportConversation() Export {
	return Export{
		Timestamp: time.Now().UnixMilli(),
		Model:     a.model,
		Messages:  a.LiveHistory(),
	}
}

// SessionHistory reconstructs every stored session for the history browser.
func (a *Agent) SessionHistory() []history.SessionView {
	return a.store.Sessions()
}

// Process runs one full turn: build and budget-gate the window, record the
// user turn, call the provider, record the reply. The lifecycle is driven by
// a state machine so each stage has exactly one entry action and the
// terminal state names the outcome.
func (a *Agent) Process(ctx context.Context, content string) (string, error) {
	type fsmContext struct {
		outgoing  []openai.ChatCompletionMessage
		reply     string
		lastError error
	}
	fsmCtx := &fsmContext{}

	fsm := stateless.NewStateMachine(StateBuildingWindow)

	fsm.Configure(StateBuildingWindow).
		PermitReentry(TriggerProcessTurn). // the initial Fire re-enters to run OnEntry
		OnEntry(func(ctx context.Context, args ...any) error {
			msgs, err := a.BuildOutgoing(content)
			if err != nil {
				return fsm.FireCtx(ctx, TriggerWindowTooLarge)
			}
			fsmCtx.outgoing = msgs
			return fsm.FireCtx(ctx, TriggerWindowAccepted)
		}).
		Permit(TriggerWindowAccepted, StateAwaitingLLMResponse).
		Permit(TriggerWindowTooLarge, StateRejected)

	fsm.Configure(StateAwaitingLLMResponse).
		OnEntry(func(ctx context.Context, args ...any) error {
			// The user turn is accepted once it passes the budget gate; it is
			// recorded whether or not the provider answers.
			a.AppendTurn(chat.RoleUser, content)

			resp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:    a.model,
				Messages: fsmCtx.outgoing,
			})
			if err != nil {
				logger.L.Error("provider call failed", "error", err)
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			if len(resp.Choices) == 0 {
				fsmCtx.lastError = errors.New("provider returned no choices")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.reply = resp.Choices[0].Message.Content
			return fsm.FireCtx(ctx, TriggerLLMResponded)
		}).
		Permit(TriggerLLMResponded, StatePersisting).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StatePersisting).
		OnEntry(func(ctx context.Context, args ...any) error {
			a.AppendTurn(chat.RoleAssistant, fsmCtx.reply)
			return fsm.FireCtx(ctx, TriggerReplyPersisted)
		}).
		Permit(TriggerReplyPersisted, StateDone)

	fsm.Configure(StateDone)
	fsm.Configure(StateRejected)
	fsm.Configure(StateError)

	if err := fsm.FireCtx(ctx, TriggerProcessTurn); err != nil {
		logger.L.Warn("turn FSM fire error", "error", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("turn FSM internal error: %w", err)
	}
	switch state {
	case StateDone:
		return fsmCtx.reply, nil
	case StateRejected:
		return "", ErrContextTooLarge
	case StateError:
		if fsmCtx.lastError != nil {
			return "", fsmCtx.lastError
		}
		return "", errors.New("turn failed without a specific error")
	}
	return "", fmt.Errorf("turn FSM ended in an unexpected state: %v", state)
}
