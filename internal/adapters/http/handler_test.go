package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/taskchat/internal/adapters/http"
	"github.com/PabloGalante/taskchat/internal/adapters/llm"
	"github.com/PabloGalante/taskchat/internal/adapters/storage/memory"
	"github.com/PabloGalante/taskchat/internal/app/conversation"
	"github.com/PabloGalante/taskchat/internal/app/dispatch"
	"github.com/PabloGalante/taskchat/internal/app/intent"
	taskapp "github.com/PabloGalante/taskchat/internal/app/tasks"
	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

func newTestServer(t *testing.T) (http.Handler, *memory.TaskStore) {
	t.Helper()

	sessionStore := memory.NewSessionStore()
	taskStore := memory.NewTaskStore()

	convSvc := conversation.NewService(
		sessionStore,
		intent.NewInterpreter(llm.NewMockLLM()),
		dispatch.NewDispatcher(taskStore, 0),
		observability.NopTracer(),
	)
	taskSvc := taskapp.NewService(taskStore)

	return httpadapter.NewServer(convSvc, taskSvc), taskStore
}

type messageResponse struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Intent    *struct {
		Action    string `json:"action"`
		TaskTitle string `json:"task_title"`
		Ambiguous bool   `json:"ambiguous"`
	} `json:"intent"`
}

func postMessage(t *testing.T, srv http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/message", bytes.NewReader([]byte(body)))
	req = req.WithContext(context.Background())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSendMessageNewSession(t *testing.T) {
	srv, store := newTestServer(t)

	w := postMessage(t, srv, `{"message":"add a task to buy milk"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp messageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.MessageID)
	assert.Contains(t, resp.Response, "buy milk")
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "create", resp.Intent.Action)
	assert.Equal(t, "buy milk", resp.Intent.TaskTitle)

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "buy milk", all[0].Title)
}

func TestSendMessageErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"message":`, http.StatusBadRequest},
		{"blank", `{"message":"   "}`, http.StatusBadRequest},
		{"too long", `{"message":"` + strings.Repeat("a", domain.MaxMessageLength+1) + `"}`, http.StatusBadRequest},
		{"unknown session", `{"session_id":"ghost","message":"hi"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postMessage(t, srv, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chatbot/message", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postMessage(t, srv, `{"message":"add a task to walk dog"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var sent messageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))

	w = postMessage(t, srv, `{"session_id":"`+sent.SessionID+`","message":"show my tasks"}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chatbot/session?session_id="+sent.SessionID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var sess struct {
		SessionID    string `json:"session_id"`
		MessageCount int    `json:"message_count"`
		Messages     []struct {
			Sender  string `json:"sender"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, sent.SessionID, sess.SessionID)
	assert.Equal(t, 4, sess.MessageCount)
	require.Len(t, sess.Messages, 4)
	assert.Equal(t, "user", sess.Messages[0].Sender)
	assert.Equal(t, "bot", sess.Messages[1].Sender)

	req = httptest.NewRequest(http.MethodDelete, "/api/chatbot/session?session_id="+sent.SessionID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/chatbot/session?session_id="+sent.SessionID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/chatbot/session", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTasks(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	a, err := store.Create(ctx, domain.NewTask{Title: "a"})
	require.NoError(t, err)
	_, err = store.Create(ctx, domain.NewTask{Title: "b"})
	require.NoError(t, err)
	_, err = store.Toggle(ctx, a.ID)
	require.NoError(t, err)

	get := func(url string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		return w
	}

	w := get("/api/tasks")
	require.Equal(t, http.StatusOK, w.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	w = get("/api/tasks?completed=false")
	require.Equal(t, http.StatusOK, w.Code)
	var open []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &open))
	require.Len(t, open, 1)
	assert.Equal(t, "b", open[0]["title"])

	assert.Equal(t, http.StatusBadRequest, get("/api/tasks?completed=maybe").Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chatbot/message", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
