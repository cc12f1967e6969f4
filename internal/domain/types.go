package domain

import "time"

type SessionID string
type MessageID string

// TaskID is the numeric identity assigned by the task store.
type TaskID int64

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Timestamp = time.Time

// Content limits shared by the conversation layer and the interpreter.
const (
	MaxMessageLength       = 2000
	MaxTitleLength         = 200
	MaxDescriptionLength   = 1000
	MaxClarificationLength = 500
)

// Truncate caps s at n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
