package observability

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Tracer records the start and end of a unit of work plus events inside it.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}

type spanKey struct{}

// ZerologTracer implements Tracer as structured span_start/span_end records.
type ZerologTracer struct {
	logger zerolog.Logger
}

func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// NewTracer builds a JSON tracer writing to w at the given level.
func NewTracer(w io.Writer, level string) *ZerologTracer {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return NewZerologTracer(zerolog.New(w).Level(lvl).With().Timestamp().Logger())
}

// NopTracer discards everything.
func NopTracer() *ZerologTracer {
	return NewZerologTracer(zerolog.Nop())
}

func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	lc := t.logger.With().Str("span", name)
	if reqID := RequestID(ctx); reqID != "" {
		lc = lc.Str("request_id", reqID)
	}
	for k, v := range attrs {
		lc = lc.Interface(k, v)
	}
	spanLogger := lc.Logger()

	ctx = context.WithValue(ctx, spanKey{}, spanLogger)
	start := time.Now()

	spanLogger.Debug().Str("event", "span_start").Msg("starting span")

	finish := func(err error) {
		event := spanLogger.Info()
		if err != nil {
			event = spanLogger.Error().Err(err)
		}
		event.
			Str("event", "span_end").
			Dur("duration", time.Since(start)).
			Msg("ending span")
	}
	return ctx, finish
}

func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	l, ok := ctx.Value(spanKey{}).(zerolog.Logger)
	if !ok {
		l = t.logger
	}
	event := l.Info()
	for k, v := range attrs {
		event = event.Interface(k, v)
	}
	event.Str("event", name).Msg("trace event")
}

var _ Tracer = (*ZerologTracer)(nil)
