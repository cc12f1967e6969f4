package domain

// Message is one turn in a session timeline (user or bot).
type Message struct {
	ID        MessageID `json:"id"`
	SessionID SessionID `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`

	// Intent is attached only to bot messages produced from an interpretation.
	Intent *Intent `json:"intent,omitempty"`
}

// Session is a bounded-lifetime conversation with its message history.
// ContextWindow is always a suffix of Messages and is never edited directly.
type Session struct {
	ID            SessionID  `json:"id"`
	Messages      []*Message `json:"messages"`
	ContextWindow []*Message `json:"context_window"`
	CreatedAt     Timestamp  `json:"created_at"`
	LastActivity  Timestamp  `json:"last_activity"`
	ExpiresAt     Timestamp  `json:"expires_at"`
}

// Expired reports whether the session is logically absent at now.
func (s *Session) Expired(now Timestamp) bool {
	return now.After(s.ExpiresAt)
}
