package intent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

const (
	DefaultConfidenceThreshold = 0.7
	DefaultProviderTimeout     = 15 * time.Second

	ClarifyUnparseable   = "I had trouble understanding that. Could you try rephrasing?"
	ClarifyProviderError = "I encountered an error. Please try again."
	ClarifyLowConfidence = "I'm not quite sure what you want to do. Could you rephrase that?"
)

// Interpreter turns a user message into a validated domain.Intent.
// It never returns an error: provider and decoding failures become
// ambiguous fallback intents.
type Interpreter struct {
	llm       domain.LLMClient
	threshold float64
	timeout   time.Duration
}

type Option func(*Interpreter)

func WithThreshold(t float64) Option {
	return func(i *Interpreter) {
		if t >= 0 && t <= 1 {
			i.threshold = t
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(i *Interpreter) {
		if d > 0 {
			i.timeout = d
		}
	}
}

func NewInterpreter(llm domain.LLMClient, opts ...Option) *Interpreter {
	i := &Interpreter{
		llm:       llm,
		threshold: DefaultConfidenceThreshold,
		timeout:   DefaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ParseIntent asks the provider to classify text, using window for continuity.
func (i *Interpreter) ParseIntent(ctx context.Context, text string, window []*domain.Message) domain.Intent {
	log := observability.LoggerFromContext(ctx).With("component", "intent")

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	raw, err := i.llm.Complete(callCtx, BuildPrompt(text, window))
	if err != nil {
		log.Error("provider call failed",
			"error", err,
			"timeout", errors.Is(err, context.DeadlineExceeded),
		)
		return fallback(ClarifyProviderError)
	}

	in, err := Decode(raw)
	if err != nil {
		var unparseable *UnparseableError
		if errors.As(err, &unparseable) {
			log.Warn("provider reply rejected", "reason", unparseable.Reason)
		}
		return fallback(ClarifyUnparseable)
	}

	in = i.normalize(in)
	log.Debug("intent parsed",
		"action", in.Action,
		"confidence", in.Confidence,
		"ambiguous", in.Ambiguous,
	)
	return in
}

// normalize re-checks every provider field against the documented ranges.
func (i *Interpreter) normalize(in domain.Intent) domain.Intent {
	switch {
	case in.Confidence < 0:
		in.Confidence = 0
	case in.Confidence > 1:
		in.Confidence = 1
	}

	in.Title = clean(in.Title, domain.MaxTitleLength)
	in.NewTitle = clean(in.NewTitle, domain.MaxTitleLength)
	in.Description = clean(in.Description, domain.MaxDescriptionLength)
	in.Clarification = clean(in.Clarification, domain.MaxClarificationLength)
	if in.QueryFilter != nil {
		in.QueryFilter.SearchTerm = clean(in.QueryFilter.SearchTerm, domain.MaxTitleLength)
		if in.QueryFilter.IsCompleted == nil && in.QueryFilter.SearchTerm == "" {
			in.QueryFilter = nil
		}
	}
	if in.TaskID != nil && *in.TaskID <= 0 {
		in.TaskID = nil
	}

	if in.Confidence < i.threshold {
		in.Ambiguous = true
	}
	if in.Ambiguous && in.Clarification == "" {
		in.Clarification = ClarifyLowConfidence
	}
	return in
}

func fallback(clarification string) domain.Intent {
	return domain.Intent{
		Action:        domain.ActionRead,
		Confidence:    0,
		Ambiguous:     true,
		Clarification: clarification,
	}
}

func clean(s string, limit int) string {
	return strings.TrimSpace(domain.Truncate(strings.TrimSpace(s), limit))
}
