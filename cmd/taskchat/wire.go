package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/PabloGalante/taskchat/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/taskchat/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/taskchat/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/taskchat/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/taskchat/internal/app/conversation"
	"github.com/PabloGalante/taskchat/internal/app/dispatch"
	"github.com/PabloGalante/taskchat/internal/app/intent"
	"github.com/PabloGalante/taskchat/internal/app/tasks"
	"github.com/PabloGalante/taskchat/internal/config"
	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

// app is the fully wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	sessions *memstore.SessionStore
	janitor  *memstore.Janitor
	chat     *conversation.Service
	tasks    *tasks.Service
	closers  []io.Closer
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	observability.Configure(os.Stderr, cfg.Log.Level)
	log := observability.Logger()

	llmClient, err := newLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("llm provider selected", "provider", cfg.LLM.Provider)

	store, closer, err := newTaskStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("task store selected", "backend", cfg.Storage.Backend)

	a := &app{cfg: cfg}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.sessions = memstore.NewSessionStore(
		memstore.WithTTL(cfg.Chatbot.SessionTTL()),
		memstore.WithMaxContext(cfg.Chatbot.MaxContextMessages),
	)
	a.janitor = memstore.NewJanitor(a.sessions, cfg.Chatbot.CleanupInterval)

	interpreter := intent.NewInterpreter(llmClient,
		intent.WithThreshold(cfg.Chatbot.ConfidenceThreshold),
		intent.WithTimeout(cfg.Chatbot.ProviderTimeout),
	)
	dispatcher := dispatch.NewDispatcher(store, cfg.Chatbot.StoreTimeout)
	tracer := observability.NewTracer(os.Stderr, cfg.Log.Level)

	a.chat = conversation.NewService(a.sessions, interpreter, dispatcher, tracer)
	a.tasks = tasks.NewService(store)
	return a, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config) (domain.LLMClient, error) {
	switch cfg.LLM.Provider {
	case llm.ProviderMock:
		return llm.NewMockLLM(), nil
	case llm.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:          cfg.LLM.APIKey,
			Project:         cfg.LLM.GCPProject,
			Location:        cfg.LLM.GCPLocation,
			Model:           cfg.LLM.Model,
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		return c, nil
	case llm.ProviderOpenAI:
		c, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:          cfg.LLM.APIKey,
			BaseURL:         cfg.LLM.BaseURL,
			Model:           cfg.LLM.Model,
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
			Timeout:         cfg.Chatbot.ProviderTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// newTaskStore returns the store and, for backends holding a connection, its closer.
func newTaskStore(ctx context.Context, cfg *config.Config) (domain.TaskStore, io.Closer, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memstore.NewTaskStore(), nil, nil
	case "sqlite":
		s, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s, nil
	case "firestore":
		s, err := firestorestore.NewStore(ctx, cfg.Storage.GCPProject)
		if err != nil {
			return nil, nil, fmt.Errorf("init firestore store: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
