package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskchat/internal/adapters/llm"
	"github.com/PabloGalante/taskchat/internal/adapters/storage/memory"
	"github.com/PabloGalante/taskchat/internal/app/conversation"
	"github.com/PabloGalante/taskchat/internal/app/dispatch"
	"github.com/PabloGalante/taskchat/internal/app/intent"
	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

type fixedLLM struct {
	reply string
	err   error
}

func (f fixedLLM) Complete(context.Context, domain.Prompt) (string, error) {
	return f.reply, f.err
}

// countingExecutor records how often the dispatcher was reached.
type countingExecutor struct {
	inner *dispatch.Dispatcher
	calls int
}

func (c *countingExecutor) Execute(ctx context.Context, in domain.Intent) domain.ExecutionResult {
	c.calls++
	return c.inner.Execute(ctx, in)
}

type fixture struct {
	svc      *conversation.Service
	sessions *memory.SessionStore
	tasks    *memory.TaskStore
	exec     *countingExecutor
}

func newFixture(t *testing.T, client domain.LLMClient) *fixture {
	t.Helper()

	sessions := memory.NewSessionStore()
	tasks := memory.NewTaskStore()
	exec := &countingExecutor{inner: dispatch.NewDispatcher(tasks, 0)}

	svc := conversation.NewService(sessions, intent.NewInterpreter(client), exec, observability.NopTracer())
	return &fixture{svc: svc, sessions: sessions, tasks: tasks, exec: exec}
}

func TestSendMessageCreatesSessionAndTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())

	out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{Text: "add a task to buy milk"})
	require.NoError(t, err)

	require.NotEmpty(t, out.Session.ID)
	require.NotNil(t, out.Result)
	require.True(t, out.Result.Success)
	assert.Equal(t, "buy milk", out.Result.Task.Title)
	assert.Contains(t, out.BotMessage.Content, "buy milk")
	assert.Equal(t, domain.ActionCreate, out.Intent.Action)

	require.Len(t, out.Session.Messages, 2)
	assert.Equal(t, domain.SenderUser, out.Session.Messages[0].Sender)
	assert.Equal(t, domain.SenderBot, out.Session.Messages[1].Sender)
	require.NotNil(t, out.Session.Messages[1].Intent)

	all, err := f.tasks.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSendMessageContinuesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())

	first, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{Text: "add a task to buy milk"})
	require.NoError(t, err)

	second, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: first.Session.ID,
		Text:      "what tasks do I have?",
	})
	require.NoError(t, err)

	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Equal(t, "You have 1 task:\n1. ○ buy milk", second.BotMessage.Content)
	assert.Len(t, second.Session.Messages, 4)
	assert.Equal(t, 1, f.sessions.SessionCount())
}

func TestLowConfidenceDoesNotTouchStore(t *testing.T) {
	f := newFixture(t, fixedLLM{reply: `{"action":"create","confidence":0.3,"task_title":"maybe something"}`})

	out, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{Text: "something something"})
	require.NoError(t, err)

	assert.True(t, out.Intent.Ambiguous)
	assert.Nil(t, out.Result)
	assert.Equal(t, intent.ClarifyLowConfidence, out.BotMessage.Content)
	assert.Zero(t, f.exec.calls)
	assert.Len(t, out.Session.Messages, 2)
}

func TestInvalidProviderJSONStillCompletesTurn(t *testing.T) {
	f := newFixture(t, fixedLLM{reply: "I'd love to help!"})

	out, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{Text: "add milk"})
	require.NoError(t, err)

	assert.Equal(t, intent.ClarifyUnparseable, out.BotMessage.Content)
	require.Len(t, out.Session.Messages, 2)
	assert.Equal(t, intent.ClarifyUnparseable, out.Session.Messages[1].Content)
}

func TestProviderErrorIsNotLeaked(t *testing.T) {
	f := newFixture(t, fixedLLM{err: errors.New("dial tcp 10.0.0.1:443: connection refused")})

	out, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{Text: "list my tasks"})
	require.NoError(t, err)

	assert.Equal(t, intent.ClarifyProviderError, out.BotMessage.Content)
	assert.NotContains(t, out.BotMessage.Content, "10.0.0.1")
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t, llm.NewMockLLM())
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{Text: "   "})
	assert.ErrorIs(t, err, conversation.ErrEmptyMessage)

	_, err = f.svc.SendMessage(ctx, conversation.SendMessageInput{Text: strings.Repeat("a", domain.MaxMessageLength+1)})
	assert.ErrorIs(t, err, conversation.ErrMessageTooLong)

	_, err = f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "nope", Text: "hi"})
	assert.ErrorIs(t, err, conversation.ErrSessionNotFound)

	assert.Zero(t, f.sessions.SessionCount(), "rejected messages create no session")
}

func TestBotReplyIsCapped(t *testing.T) {
	long := strings.Repeat("x", domain.MaxClarificationLength*2)
	f := newFixture(t, fixedLLM{reply: `{"action":"read","confidence":0.1,"clarification_needed":"` + long + `"}`})

	out, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{Text: "?"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(out.BotMessage.Content)), domain.MaxMessageLength)
}

func TestGetAndDeleteSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())

	out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{Text: "add a task to walk dog"})
	require.NoError(t, err)

	sess, err := f.svc.GetSession(ctx, out.Session.ID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 2)

	require.NoError(t, f.svc.DeleteSession(ctx, out.Session.ID))
	assert.ErrorIs(t, f.svc.DeleteSession(ctx, out.Session.ID), conversation.ErrSessionNotFound)

	_, err = f.svc.GetSession(ctx, out.Session.ID)
	assert.ErrorIs(t, err, conversation.ErrSessionNotFound)
}

func TestDeleteByTitleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	_, err := f.tasks.Create(ctx, domain.NewTask{Title: "buy groceries"})
	require.NoError(t, err)

	out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{Text: "delete groceries"})
	require.NoError(t, err)

	assert.Contains(t, out.BotMessage.Content, "buy groceries")
	all, err := f.tasks.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
