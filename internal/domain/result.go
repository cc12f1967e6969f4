package domain

// ExecutionResult is the transient outcome of dispatching one intent.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Action  Action `json:"action"`

	Task  *Task   `json:"task,omitempty"`
	Tasks []*Task `json:"tasks,omitempty"`

	// DeletedTitle echoes the title captured before a delete.
	DeletedTitle string `json:"deleted_title,omitempty"`

	// MatchCount is the true candidate count behind a (capped) Tasks list.
	MatchCount int `json:"match_count,omitempty"`

	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
