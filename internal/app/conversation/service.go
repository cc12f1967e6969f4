package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/taskchat/internal/app/reply"
	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = fmt.Errorf("message exceeds %d characters", domain.MaxMessageLength)
	ErrSessionNotFound = errors.New("session not found or expired")
)

// IntentParser is the interpretation step of a turn.
type IntentParser interface {
	ParseIntent(ctx context.Context, text string, window []*domain.Message) domain.Intent
}

// Executor runs an unambiguous intent.
type Executor interface {
	Execute(ctx context.Context, in domain.Intent) domain.ExecutionResult
}

type Service struct {
	sessionStore domain.SessionStore
	parser       IntentParser
	executor     Executor
	tracer       observability.Tracer
	now          func() time.Time
}

func NewService(
	sessionStore domain.SessionStore,
	parser IntentParser,
	executor Executor,
	tracer observability.Tracer,
) *Service {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &Service{
		sessionStore: sessionStore,
		parser:       parser,
		executor:     executor,
		tracer:       tracer,
		now:          time.Now,
	}
}

type SendMessageInput struct {
	// SessionID is optional; empty starts a new session.
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	Session     *domain.Session
	UserMessage *domain.Message
	BotMessage  *domain.Message
	Intent      domain.Intent
	Result      *domain.ExecutionResult
}

// SendMessage runs one chat turn: interpret, execute unless ambiguous,
// render, then append the user/bot pair to the session.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (out *SendMessageOutput, err error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(text)) > domain.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	var session *domain.Session
	if in.SessionID != "" {
		var ok bool
		session, ok = s.sessionStore.GetSession(in.SessionID)
		if !ok {
			return nil, fmt.Errorf("session %s: %w", in.SessionID, ErrSessionNotFound)
		}
	} else {
		session = s.sessionStore.CreateSession("")
	}

	ctx = observability.WithSessionID(ctx, string(session.ID))
	log := observability.LoggerFromContext(ctx)
	log.Info("processing message", "length", len(text))

	ctx, finish := s.tracer.StartSpan(ctx, "chat.turn", map[string]any{"session_id": string(session.ID)})
	defer func() { finish(err) }()

	userMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Sender:    domain.SenderUser,
		Content:   text,
		Timestamp: s.now(),
	}

	intent := s.parser.ParseIntent(ctx, text, session.ContextWindow)
	s.tracer.Event(ctx, "intent.parsed", map[string]any{
		"action":     string(intent.Action),
		"confidence": intent.Confidence,
		"ambiguous":  intent.Ambiguous,
	})

	var (
		replyText string
		result    *domain.ExecutionResult
	)
	if intent.Ambiguous {
		replyText = reply.Clarification(intent)
	} else {
		res := s.executor.Execute(ctx, intent)
		result = &res
		s.tracer.Event(ctx, "intent.executed", map[string]any{
			"action":  string(res.Action),
			"success": res.Success,
		})
		replyText = reply.Render(res)
	}

	botMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Sender:    domain.SenderBot,
		Content:   domain.Truncate(replyText, domain.MaxMessageLength),
		Timestamp: s.now(),
		Intent:    &intent,
	}

	updated, ok := s.sessionStore.UpdateSession(session.ID, userMsg, botMsg)
	if !ok {
		// Expired or deleted while the turn was running.
		log.Warn("session vanished mid-turn")
		return nil, fmt.Errorf("session %s: %w", session.ID, ErrSessionNotFound)
	}

	log.Info("message processed",
		"action", intent.Action,
		"ambiguous", intent.Ambiguous,
		"message_count", len(updated.Messages),
	)

	return &SendMessageOutput{
		Session:     updated,
		UserMessage: userMsg,
		BotMessage:  botMsg,
		Intent:      intent,
		Result:      result,
	}, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	session, ok := s.sessionStore.GetSession(id)
	if !ok {
		observability.LoggerFromContext(ctx).Info("session lookup missed", "session_id", id)
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return session, nil
}

func (s *Service) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if !s.sessionStore.DeleteSession(id) {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	observability.LoggerFromContext(ctx).Info("session deleted", "session_id", id)
	return nil
}
