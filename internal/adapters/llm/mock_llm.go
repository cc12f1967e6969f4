package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PabloGalante/taskchat/internal/domain"
)

// MockLLM is a deterministic keyword classifier that answers with the same
// JSON contract as the real providers. It is the default in local mode.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

var (
	updateRe   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:change|update|rename|edit)\s+(?:the\s+)?(?:task\s+)?(.+?)\s+to\s+(.+)$`)
	completeRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:please\s+)?(?:mark\s+)?(?:the\s+)?(.+?)\s+as\s+(?:done|complete|completed|finished)$`),
		regexp.MustCompile(`(?i)^(?:please\s+)?(?:complete|finish|i finished|i'm done with|i am done with|done with|check off)\s+(?:the\s+)?(.+?)(?:\s+task)?$`),
	}
	deleteRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:delete|remove|get rid of)\s+(?:the\s+)?(?:task\s+)?(.+?)(?:\s+task)?$`)
	createRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:add|create|make|remind me to|i need to)(?:\s+(?:a|an|the|new|task|todo)\b)*(?:\s*(?:to|for|:))?\s+(.+)$`)
	readRe   = regexp.MustCompile(`(?i)\b(?:show|list|what|which|my tasks|tasks do i have)\b`)
)

type mockReply struct {
	Action        string           `json:"action"`
	Confidence    float64          `json:"confidence"`
	TaskTitle     *string          `json:"task_title"`
	NewTitle      *string          `json:"new_title"`
	QueryFilter   *mockQueryFilter `json:"query_filter"`
	Ambiguous     bool             `json:"ambiguous"`
	Clarification *string          `json:"clarification_needed"`
}

type mockQueryFilter struct {
	IsCompleted *bool `json:"is_completed"`
}

// Complete implements domain.LLMClient. Only the newest user message is
// classified; the conversation history is ignored.
func (m *MockLLM) Complete(_ context.Context, prompt domain.Prompt) (string, error) {
	out, err := json.Marshal(classify(latestMessage(prompt.User)))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func classify(text string) mockReply {
	text = strings.TrimSpace(text)

	if m := updateRe.FindStringSubmatch(text); m != nil {
		return mockReply{Action: "update", Confidence: 0.85, TaskTitle: title(m[1]), NewTitle: title(m[2])}
	}
	for _, re := range completeRe {
		if m := re.FindStringSubmatch(text); m != nil {
			return mockReply{Action: "complete", Confidence: 0.9, TaskTitle: title(m[1])}
		}
	}
	if m := deleteRe.FindStringSubmatch(text); m != nil {
		return mockReply{Action: "delete", Confidence: 0.9, TaskTitle: title(m[1])}
	}
	if m := createRe.FindStringSubmatch(text); m != nil {
		return mockReply{Action: "create", Confidence: 0.9, TaskTitle: title(m[1])}
	}
	if readRe.MatchString(text) || strings.Contains(strings.ToLower(text), "tasks") {
		return mockReply{Action: "read", Confidence: 0.9, QueryFilter: readFilter(text)}
	}

	q := "I'm not sure what you'd like to do. You can add, list, complete, rename or delete tasks."
	return mockReply{Action: "read", Confidence: 0.3, Ambiguous: true, Clarification: &q}
}

func readFilter(text string) *mockQueryFilter {
	lower := strings.ToLower(text)
	var completed bool
	switch {
	case strings.Contains(lower, "incomplete"), strings.Contains(lower, "pending"),
		strings.Contains(lower, "left"), strings.Contains(lower, "open"), strings.Contains(lower, "unfinished"):
		completed = false
	case strings.Contains(lower, "completed"), strings.Contains(lower, "done"), strings.Contains(lower, "finished"):
		completed = true
	default:
		return nil
	}
	return &mockQueryFilter{IsCompleted: &completed}
}

// latestMessage extracts the text after the final "New user message:" marker.
func latestMessage(user string) string {
	const marker = "New user message:\n"
	if i := strings.LastIndex(user, marker); i >= 0 {
		return user[i+len(marker):]
	}
	return user
}

func title(s string) *string {
	t := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".!?"))
	if t == "" {
		return nil
	}
	return &t
}

var _ domain.LLMClient = (*MockLLM)(nil)
