package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/taskchat/internal/app/conversation"
	"github.com/PabloGalante/taskchat/internal/app/tasks"
	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

// maxBodyBytes bounds request bodies; a 2000-character message fits easily.
const maxBodyBytes = 64 << 10

type Server struct {
	chat  *conversation.Service
	tasks *tasks.Service
}

func NewServer(chat *conversation.Service, taskSvc *tasks.Service) http.Handler {
	s := &Server{chat: chat, tasks: taskSvc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// POST → run one chat turn
	mux.HandleFunc("/api/chatbot/message", s.handleMessage)

	// GET → session + history, DELETE → drop session
	mux.HandleFunc("/api/chatbot/session", s.handleSession)

	// GET → task list, optional ?completed=true|false
	mux.HandleFunc("/api/tasks", s.handleTasks)

	return chainMiddlewares(mux, withRecover, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type queryFilterResponse struct {
	IsCompleted *bool  `json:"is_completed,omitempty"`
	SearchTerm  string `json:"search_term,omitempty"`
}

type intentResponse struct {
	Action        string               `json:"action"`
	Confidence    float64              `json:"confidence"`
	TaskID        *int64               `json:"task_id,omitempty"`
	TaskTitle     string               `json:"task_title,omitempty"`
	NewTitle      string               `json:"new_title,omitempty"`
	Description   string               `json:"task_description,omitempty"`
	QueryFilter   *queryFilterResponse `json:"query_filter,omitempty"`
	Ambiguous     bool                 `json:"ambiguous"`
	Clarification string               `json:"clarification_needed,omitempty"`
}

type messageResponse struct {
	MessageID string          `json:"message_id"`
	SessionID string          `json:"session_id"`
	Response  string          `json:"response"`
	Intent    *intentResponse `json:"intent,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type chatMessageResponse struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Sender    string          `json:"sender"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Intent    *intentResponse `json:"intent,omitempty"`
}

type sessionResponse struct {
	SessionID    string                `json:"session_id"`
	MessageCount int                   `json:"message_count"`
	CreatedAt    time.Time             `json:"created_at"`
	LastActivity time.Time             `json:"last_activity"`
	ExpiresAt    time.Time             `json:"expires_at"`
	Messages     []chatMessageResponse `json:"messages"`
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.chat.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: domain.SessionID(strings.TrimSpace(req.SessionID)),
		Text:      req.Message,
	})
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		badRequest(w, "Message content cannot be empty")
		return
	case errors.Is(err, conversation.ErrMessageTooLong):
		badRequest(w, err.Error())
		return
	case errors.Is(err, conversation.ErrSessionNotFound):
		notFound(w, "Session not found or expired. Please start a new conversation.")
		return
	case err != nil:
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		MessageID: string(out.BotMessage.ID),
		SessionID: string(out.Session.ID),
		Response:  out.BotMessage.Content,
		Intent:    toIntentResponse(&out.Intent),
		Timestamp: out.BotMessage.Timestamp,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(strings.TrimSpace(r.URL.Query().Get("session_id")))
	if id == "" {
		badRequest(w, "session_id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := s.chat.GetSession(r.Context(), id)
		if errors.Is(err, conversation.ErrSessionNotFound) {
			notFound(w, "Session not found or expired")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))

	case http.MethodDelete:
		err := s.chat.DeleteSession(r.Context(), id)
		if errors.Is(err, conversation.ErrSessionNotFound) {
			notFound(w, "Session not found")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	var completed *bool
	if raw := r.URL.Query().Get("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "completed must be true or false")
			return
		}
		completed = &v
	}

	list, err := s.tasks.ListTasks(r.Context(), completed)
	if err != nil {
		internalError(w, r, err)
		return
	}

	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toIntentResponse(in *domain.Intent) *intentResponse {
	if in == nil {
		return nil
	}
	out := &intentResponse{
		Action:        string(in.Action),
		Confidence:    in.Confidence,
		TaskTitle:     in.Title,
		NewTitle:      in.NewTitle,
		Description:   in.Description,
		Ambiguous:     in.Ambiguous,
		Clarification: in.Clarification,
	}
	if in.TaskID != nil {
		id := int64(*in.TaskID)
		out.TaskID = &id
	}
	if in.QueryFilter != nil {
		out.QueryFilter = &queryFilterResponse{
			IsCompleted: in.QueryFilter.IsCompleted,
			SearchTerm:  in.QueryFilter.SearchTerm,
		}
	}
	return out
}

func toSessionResponse(s *domain.Session) sessionResponse {
	msgs := make([]chatMessageResponse, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, chatMessageResponse{
			ID:        string(m.ID),
			SessionID: string(m.SessionID),
			Sender:    string(m.Sender),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Intent:    toIntentResponse(m.Intent),
		})
	}
	return sessionResponse{
		SessionID:    string(s.ID),
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
		Messages:     msgs,
	}
}

func toTaskResponse(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          int64(t.ID),
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     kind,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, "bad_request", msg)
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, "not_found", msg)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
