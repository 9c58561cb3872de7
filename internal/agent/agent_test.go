package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/HemaCharanPyla/MAX-LLM/internal/chat"
	"github.com/HemaCharanPyla/MAX-LLM/internal/config"
	"github.com/HemaCharanPyla/MAX-LLM/internal/history"
	"github.com/HemaCharanPyla/MAX-LLM/internal/session"
	"github.com/HemaCharanPyla/MAX-LLM/internal/snapshot"
	"github.com/HemaCharanPyla/MAX-LLM/internal/window"
)

type mockLLM struct {
	reply string
	err   error
	reqs  []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.reply}},
		},
	}, nil
}

type fixture struct {
	agent *Agent
	mock  *mockLLM
	store *history.Store
	snap  *snapshot.Cache
}

func newFixture(t *testing.T, cfg config.LLMConfig) *fixture {
	t.Helper()
	store := history.Open(filepath.Join(t.TempDir(), "history.db"))
	t.Cleanup(store.Close)
	snap := snapshot.NewCache(store)
	mock := &mockLLM{reply: "hello"}
	return &fixture{
		agent: New(mock, store, session.NewManager(store), snap, cfg),
		mock:  mock,
		store: store,
		snap:  snap,
	}
}

func TestAppendTurn_LiveHistoryOrder(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.agent.AppendTurn(chat.RoleUser, "hi")
	f.agent.AppendTurn(chat.RoleAssistant, "hello")
	f.agent.AppendTurn(chat.RoleUser, "how are you")

	live := f.agent.LiveHistory()
	require.Equal(t, []chat.Turn{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
		{Role: chat.RoleUser, Content: "how are you"},
	}, live)
}

func TestAppendTurn_PersistsRecordAndSnapshot(t *testing.T) {
	f := newFixture(t, config.LLMConfig{Model: "test-model"})
	f.agent.AppendTurn(chat.RoleUser, "hi")

	records := f.store.ScanAll()
	require.Len(t, records, 1)
	require.Equal(t, chat.RoleUser, records[0].Role)
	require.Equal(t, "hi", records[0].Content)
	require.Equal(t, "test-model", records[0].Model)
	require.NotEmpty(t, records[0].SessionID)
	require.Positive(t, records[0].Timestamp)

	live, model, ok := f.snap.Load()
	require.True(t, ok)
	require.Equal(t, "test-model", model)
	require.Equal(t, f.agent.LiveHistory(), live)
}

func TestAppendTurn_ErrorRoleBypassesEverything(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.agent.AppendTurn(chat.RoleError, "provider exploded")

	require.Empty(t, f.agent.LiveHistory())
	require.Nil(t, f.store.ScanAll())
	_, _, ok := f.snap.Load()
	require.False(t, ok)
}

func TestNew_RestoresSnapshot(t *testing.T) {
	store := history.Open(filepath.Join(t.TempDir(), "history.db"))
	defer store.Close()
	snap := snapshot.NewCache(store)
	snap.Save([]chat.Turn{{Role: chat.RoleUser, Content: "resumed"}}, "snapshot-model")

	a := New(&mockLLM{}, store, session.NewManager(store), snap, config.LLMConfig{Model: "config-model"})
	require.Equal(t, "snapshot-model", a.Model())
	require.Equal(t, []chat.Turn{{Role: chat.RoleUser, Content: "resumed"}}, a.LiveHistory())
}

func TestNew_ModelFallbacks(t *testing.T) {
	f := newFixture(t, config.LLMConfig{Model: "config-model"})
	require.Equal(t, "config-model", f.agent.Model())

	f = newFixture(t, config.LLMConfig{})
	require.Equal(t, DefaultModel, f.agent.Model())
}

func TestSetModel_Snapshots(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.agent.SetModel("other-model")

	_, model, ok := f.snap.Load()
	require.True(t, ok)
	require.Equal(t, "other-model", model)
	require.Equal(t, "other-model", f.agent.Model())
}

func TestBuildOutgoing_IncludesLastTenTurns(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	for i := 0; i < 11; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		f.agent.AppendTurn(role, strings.Repeat("x", 3))
	}

	msgs, err := f.agent.BuildOutgoing("new")
	require.NoError(t, err)
	require.Len(t, msgs, 12)
	require.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	require.Equal(t, "new", msgs[11].Content)
}

func TestBuildOutgoing_TooLarge(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.agent.AppendTurn(chat.RoleUser, strings.Repeat("a", window.TokenBudget*4+100))

	_, err := f.agent.BuildOutgoing("new")
	require.ErrorIs(t, err, ErrContextTooLarge)
	// The rejected turn must not have been appended anywhere.
	require.Len(t, f.store.ScanAll(), 1)
	require.Len(t, f.agent.LiveHistory(), 1)
}

func TestReset(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	sessions := session.NewManager(f.store)
	before := sessions.Current()

	f.agent.AppendTurn(chat.RoleUser, "hi")
	f.agent.Reset()

	require.Empty(t, f.agent.LiveHistory())
	require.Nil(t, f.store.ScanAll())
	_, _, ok := f.snap.Load()
	require.False(t, ok)
	after, _ := f.store.GetState("session_id")
	require.NotEqual(t, before, after)
	require.NotEmpty(t, after)
}

func TestExportConversation(t *testing.T) {
	f := newFixture(t, config.LLMConfig{Model: "m"})
	f.agent.AppendTurn(chat.RoleUser, "hi")

	export := f.agent.ExportConversation()
	require.Equal(t, "m", export.Model)
	require.Positive(t, export.Timestamp)
	require.Equal(t, f.agent.LiveHistory(), export.Messages)
}

func TestSessionHistory_TwoTurnScenario(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.agent.AppendTurn(chat.RoleUser, "hi")
	f.agent.AppendTurn(chat.RoleAssistant, "hello")

	views := f.agent.SessionHistory()
	require.Len(t, views, 1)
	require.Len(t, views[0].Records, 2)
	require.Equal(t, "hi", views[0].Records[0].Content)
	require.Equal(t, "hello", views[0].Records[1].Content)
	require.Equal(t, views[0].Records[0].SessionID, views[0].Records[1].SessionID)
}

func TestProcess_FullTurn(t *testing.T) {
	f := newFixture(t, config.LLMConfig{Model: "m"})
	f.mock.reply = "hello there"

	reply, err := f.agent.Process(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "hello there", reply)

	require.Len(t, f.mock.reqs, 1)
	req := f.mock.reqs[0]
	require.Equal(t, "m", req.Model)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, "hi", req.Messages[len(req.Messages)-1].Content)

	require.Equal(t, []chat.Turn{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello there"},
	}, f.agent.LiveHistory())
	require.Len(t, f.store.ScanAll(), 2)
}

func TestProcess_TooLargeRejectsBeforeProviderCall(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.agent.AppendTurn(chat.RoleUser, strings.Repeat("a", window.TokenBudget*4+100))

	_, err := f.agent.Process(context.Background(), "new")
	require.ErrorIs(t, err, ErrContextTooLarge)
	require.Empty(t, f.mock.reqs)
	require.Len(t, f.agent.LiveHistory(), 1)
	require.Len(t, f.store.ScanAll(), 1)
}

func TestProcess_ProviderFailureKeepsUserTurn(t *testing.T) {
	f := newFixture(t, config.LLMConfig{})
	f.mock.err = context.DeadlineExceeded

	_, err := f.agent.Process(context.Background(), "hi")
	require.Error(t, err)
	// The user turn was accepted before the call and stays recorded; no
	// assistant turn follows.
	require.Equal(t, []chat.Turn{{Role: chat.RoleUser, Content: "hi"}}, f.agent.LiveHistory())
	require.Len(t, f.store.ScanAll(), 1)
}

// With no storage engine the conversation must stay fully usable in memory.
func TestDegradedStore_Conversation(t *testing.T) {
	store := history.Open(t.TempDir()) // a directory: cannot be a database
	require.True(t, store.Degraded())
	snap := snapshot.NewCache(store)
	a := New(&mockLLM{reply: "hello"}, store, session.NewManager(store), snap, config.LLMConfig{})

	a.AppendTurn(chat.RoleUser, "hi")
	a.AppendTurn(chat.RoleAssistant, "hello")
	require.Len(t, a.LiveHistory(), 2)
	require.Nil(t, a.SessionHistory())

	reply, err := a.Process(context.Background(), "again")
	require.NoError(t, err)
	require.Equal(t, "hello", reply)
	require.Len(t, a.LiveHistory(), 4)
}
