package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/taskchat/internal/domain"
)

const (
	// MaxSessionMessages caps the stored history per session.
	MaxSessionMessages = 50

	DefaultSessionTTL       = 30 * time.Minute
	DefaultMaxContextWindow = 10
)

// SessionStore keeps chat sessions in process memory.
// It is NOT persistent and is not shared across processes.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[domain.SessionID]*domain.Session
	ttl        time.Duration
	maxContext int
	now        func() time.Time
}

// SessionOption customizes a SessionStore.
type SessionOption func(*SessionStore)

// WithTTL sets the inactivity window after which a session expires.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxContext sets the size of the derived context window.
func WithMaxContext(n int) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxContext = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionStore(opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions:   make(map[domain.SessionID]*domain.Session),
		ttl:        DefaultSessionTTL,
		maxContext: DefaultMaxContextWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession allocates an empty session. An empty id gets a fresh UUID.
// Creating with an id that already exists replaces the old session.
func (s *SessionStore) CreateSession(id domain.SessionID) *domain.Session {
	if id == "" {
		id = domain.SessionID(uuid.NewString())
	}

	now := s.now()
	sess := &domain.Session{
		ID:            id,
		Messages:      []*domain.Message{},
		ContextWindow: []*domain.Message{},
		CreatedAt:     now,
		LastActivity:  now,
		ExpiresAt:     now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return snapshot(sess)
}

// GetSession returns the session if it exists and has not expired.
// An expired session is removed as a side effect of the lookup.
func (s *SessionStore) GetSession(id domain.SessionID) (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookupLocked(id)
	if !ok {
		return nil, false
	}
	return snapshot(sess), true
}

// UpdateSession appends the user/bot pair, trims history, recomputes the
// context window and refreshes expiry.
func (s *SessionStore) UpdateSession(id domain.SessionID, userMsg, botMsg *domain.Message) (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookupLocked(id)
	if !ok {
		return nil, false
	}

	msgs := make([]*domain.Message, 0, len(sess.Messages)+2)
	msgs = append(msgs, sess.Messages...)
	if userMsg != nil {
		msgs = append(msgs, userMsg)
	}
	if botMsg != nil {
		msgs = append(msgs, botMsg)
	}
	if len(msgs) > MaxSessionMessages {
		msgs = msgs[len(msgs)-MaxSessionMessages:]
	}

	sess.Messages = msgs
	sess.ContextWindow = window(msgs, s.maxContext)

	now := s.now()
	sess.LastActivity = now
	sess.ExpiresAt = now.Add(s.ttl)

	return snapshot(sess), true
}

func (s *SessionStore) DeleteSession(id domain.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return false
	}
	delete(s.sessions, id)
	return true
}

// CleanupExpired removes every expired session and returns how many were dropped.
func (s *SessionStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// SessionCount counts stored sessions, including expired ones not yet swept.
func (s *SessionStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) lookupLocked(id domain.SessionID) (*domain.Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

func window(msgs []*domain.Message, size int) []*domain.Message {
	start := 0
	if len(msgs) > size {
		start = len(msgs) - size
	}
	out := make([]*domain.Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out
}

// snapshot copies the session header and slices so callers cannot mutate
// the stored history. Messages themselves are treated as immutable.
func snapshot(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.Messages = append([]*domain.Message(nil), sess.Messages...)
	cp.ContextWindow = append([]*domain.Message(nil), sess.ContextWindow...)
	if cp.Messages == nil {
		cp.Messages = []*domain.Message{}
	}
	if cp.ContextWindow == nil {
		cp.ContextWindow = []*domain.Message{}
	}
	return &cp
}

var _ domain.SessionStore = (*SessionStore)(nil)
