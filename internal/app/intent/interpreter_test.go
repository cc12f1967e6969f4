package intent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskchat/internal/app/intent"
	"github.com/PabloGalante/taskchat/internal/domain"
)

type stubLLM struct {
	reply  string
	err    error
	delay  time.Duration
	prompt domain.Prompt
}

func (s *stubLLM) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	s.prompt = p
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func TestParseIntentCreate(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"CREATE","confidence":0.95,"task_title":"buy milk","task_description":null,"ambiguous":false,"clarification_needed":null}`}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "add a task to buy milk", nil)

	assert.Equal(t, domain.ActionCreate, in.Action)
	assert.InDelta(t, 0.95, in.Confidence, 1e-9)
	assert.Equal(t, "buy milk", in.Title)
	assert.Empty(t, in.Description)
	assert.False(t, in.Ambiguous)
	assert.Empty(t, in.Clarification)
}

func TestParseIntentLowConfidenceForcesAmbiguous(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"delete","confidence":0.3,"task_title":"something","ambiguous":false}`}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "uh", nil)

	assert.True(t, in.Ambiguous)
	assert.Equal(t, intent.ClarifyLowConfidence, in.Clarification)
}

func TestParseIntentKeepsProviderClarification(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"update","confidence":0.4,"ambiguous":true,"clarification_needed":"Which task should I change?"}`}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "change it", nil)

	assert.True(t, in.Ambiguous)
	assert.Equal(t, "Which task should I change?", in.Clarification)
}

func TestParseIntentCustomThreshold(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"read","confidence":0.6}`}
	in := intent.NewInterpreter(llm, intent.WithThreshold(0.5)).ParseIntent(context.Background(), "tasks?", nil)

	assert.False(t, in.Ambiguous)
}

func TestParseIntentFallbacks(t *testing.T) {
	cases := []struct {
		name string
		llm  *stubLLM
		want string
	}{
		{"invalid json", &stubLLM{reply: "sure, I'll add that!"}, intent.ClarifyUnparseable},
		{"missing action", &stubLLM{reply: `{"confidence":0.9,"task_title":"x"}`}, intent.ClarifyUnparseable},
		{"unknown action", &stubLLM{reply: `{"action":"archive","confidence":0.9}`}, intent.ClarifyUnparseable},
		{"wrong type", &stubLLM{reply: `{"action":"create","confidence":"high"}`}, intent.ClarifyUnparseable},
		{"array", &stubLLM{reply: `[{"action":"create"}]`}, intent.ClarifyUnparseable},
		{"provider error", &stubLLM{err: errors.New("503 from upstream")}, intent.ClarifyProviderError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := intent.NewInterpreter(tc.llm).ParseIntent(context.Background(), "hello", nil)

			assert.Equal(t, domain.ActionRead, in.Action)
			assert.Zero(t, in.Confidence)
			assert.True(t, in.Ambiguous)
			assert.Equal(t, tc.want, in.Clarification)
		})
	}
}

func TestParseIntentProviderTimeout(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"read","confidence":1}`, delay: time.Second}
	in := intent.NewInterpreter(llm, intent.WithTimeout(10*time.Millisecond)).ParseIntent(context.Background(), "list", nil)

	assert.True(t, in.Ambiguous)
	assert.Equal(t, intent.ClarifyProviderError, in.Clarification)
}

func TestParseIntentSanitizesFields(t *testing.T) {
	long := strings.Repeat("é", 250)
	llm := &stubLLM{reply: `{"action":"create","confidence":7,"task_title":"` + long + `","task_description":"   ","task_id":-2}`}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "add", nil)

	assert.Equal(t, 1.0, in.Confidence)
	assert.Equal(t, domain.MaxTitleLength, len([]rune(in.Title)))
	assert.Empty(t, in.Description)
	assert.Nil(t, in.TaskID)

	llm.reply = `{"action":"create","confidence":-1}`
	in = intent.NewInterpreter(llm).ParseIntent(context.Background(), "add", nil)
	assert.Zero(t, in.Confidence)
	assert.True(t, in.Ambiguous)
}

func TestParseIntentReadFilterAndFences(t *testing.T) {
	llm := &stubLLM{reply: "```json\n{\"action\":\"read\",\"confidence\":0.9,\"query_filter\":{\"is_completed\":false}}\n```"}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "what's left?", nil)

	require.NotNil(t, in.QueryFilter)
	require.NotNil(t, in.QueryFilter.IsCompleted)
	assert.False(t, *in.QueryFilter.IsCompleted)
}

func TestParseIntentUpdateWithID(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"update","confidence":0.9,"task_id":4,"new_title":"buy almond milk"}`}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "rename task 4 to buy almond milk", nil)

	require.NotNil(t, in.TaskID)
	assert.Equal(t, domain.TaskID(4), *in.TaskID)
	assert.Equal(t, "buy almond milk", in.NewTitle)
}

func TestParseIntentMissingConfidenceDefaults(t *testing.T) {
	llm := &stubLLM{reply: `{"action":"read"}`}
	in := intent.NewInterpreter(llm).ParseIntent(context.Background(), "list", nil)

	assert.InDelta(t, 0.5, in.Confidence, 1e-9)
	assert.True(t, in.Ambiguous, "0.5 is below the default threshold")
}

func TestBuildPromptIncludesWindow(t *testing.T) {
	window := []*domain.Message{
		{Sender: domain.SenderUser, Content: "add buy milk"},
		{Sender: domain.SenderBot, Content: "Done! 'buy milk' is now on your list."},
	}
	llm := &stubLLM{reply: `{"action":"complete","confidence":0.9,"task_title":"buy milk"}`}
	intent.NewInterpreter(llm).ParseIntent(context.Background(), "mark it done", window)

	assert.Contains(t, llm.prompt.System, "task management assistant")
	assert.Equal(t,
		"Conversation so far:\nuser: add buy milk\nassistant: Done! 'buy milk' is now on your list.\n\nNew user message:\nmark it done",
		llm.prompt.User,
	)
}

func TestDecodeReturnsUnparseableError(t *testing.T) {
	_, err := intent.Decode("{not json")

	var unparseable *intent.UnparseableError
	require.ErrorAs(t, err, &unparseable)
	assert.NotEmpty(t, unparseable.Reason)
}
