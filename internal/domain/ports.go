package domain

import "context"

// Prompt is the system instruction plus the user content sent to a provider.
type Prompt struct {
	System string
	User   string
}

// LLMClient is the language-understanding provider. Complete returns the raw
// text of the reply; callers treat it as untrusted.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// SessionStore owns session and message lifetime.
type SessionStore interface {
	CreateSession(id SessionID) *Session
	GetSession(id SessionID) (*Session, bool)
	UpdateSession(id SessionID, userMsg, botMsg *Message) (*Session, bool)
	DeleteSession(id SessionID) bool
	CleanupExpired() int
	SessionCount() int
}
