package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskchat/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestChatLoopWithMockProvider(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	in := strings.NewReader("add buy milk\n\nshow my tasks\nexit\nadd never sent\n")
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), a.chat, in, &out))

	got := out.String()
	assert.Contains(t, got, "buy milk")
	assert.Contains(t, got, "You have 1 task:")
	assert.NotContains(t, got, "never sent")

	list, err := a.tasks.ListTasks(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, a.sessions.SessionCount(), "the loop keeps reusing one session")
}

func TestChatLoopStopsAtEOF(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), a.chat, strings.NewReader(""), &out))
	assert.Equal(t, 0, a.sessions.SessionCount())
}

func TestNewTaskStoreBackends(t *testing.T) {
	cfg := testConfig(t)

	store, closer, err := newTaskStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Nil(t, closer)

	cfg.Storage.Backend = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "tasks.db")
	store, closer, err = newTaskStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)
	assert.NotNil(t, store)
	assert.NoError(t, closer.Close())

	cfg.Storage.Backend = "postgres"
	_, _, err = newTaskStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLLMClientRejectsMissingKey(t *testing.T) {
	cfg := testConfig(t)

	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	_, err := newLLMClient(context.Background(), cfg)
	assert.Error(t, err)

	cfg.LLM.Provider = "claude"
	_, err = newLLMClient(context.Background(), cfg)
	assert.Error(t, err)
}
