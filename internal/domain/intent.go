package domain

import "strings"

// Action is the task operation an intent asks for.
type Action string

const (
	ActionCreate   Action = "create"
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionComplete Action = "complete"
)

// ParseAction maps a provider value to an Action, ignoring case.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionCreate:
		return ActionCreate, true
	case ActionRead:
		return ActionRead, true
	case ActionUpdate:
		return ActionUpdate, true
	case ActionDelete:
		return ActionDelete, true
	case ActionComplete:
		return ActionComplete, true
	default:
		return "", false
	}
}

// QueryFilter narrows a read intent.
type QueryFilter struct {
	IsCompleted *bool  `json:"is_completed,omitempty"`
	SearchTerm  string `json:"search_term,omitempty"`
}

// Intent is the structured interpretation of a user message.
// Empty strings mean the field was not supplied.
type Intent struct {
	Action        Action       `json:"action"`
	Confidence    float64      `json:"confidence"`
	TaskID        *TaskID      `json:"task_id,omitempty"`
	Title         string       `json:"title,omitempty"`
	NewTitle      string       `json:"new_title,omitempty"`
	Description   string       `json:"description,omitempty"`
	QueryFilter   *QueryFilter `json:"query_filter,omitempty"`
	Ambiguous     bool         `json:"ambiguous"`
	Clarification string       `json:"clarification,omitempty"`
}
