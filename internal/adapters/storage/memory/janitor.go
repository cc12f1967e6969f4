package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PabloGalante/taskchat/internal/observability"
)

// DefaultCleanupInterval is how often the janitor sweeps expired sessions.
const DefaultCleanupInterval = time.Minute

// sweeper is the part of a session store the janitor needs.
type sweeper interface {
	CleanupExpired() int
	SessionCount() int
}

// Janitor periodically reclaims memory held by abandoned sessions.
// Lookups enforce expiry on their own, so running it is optional.
type Janitor struct {
	store    sweeper
	interval time.Duration

	mu      sync.Mutex
	loopCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewJanitor(store sweeper, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Janitor{
		store:    store,
		interval: interval,
	}
}

// Start launches the sweep loop. Calling Start on a running janitor is a no-op.
// A loop whose parent context was cancelled counts as stopped and is replaced.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.activeLocked() {
		return
	}
	if j.done != nil {
		// The loop never takes j.mu, so waiting here cannot deadlock.
		j.cancel()
		<-j.done
	}

	j.loopCtx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go j.loop(j.loopCtx, j.done)
}

// Stop cancels the loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.done == nil {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.loopCtx, j.cancel, j.done = nil, nil, nil
	j.mu.Unlock()

	cancel()
	<-done
}

func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.activeLocked()
}

func (j *Janitor) activeLocked() bool {
	if j.done == nil {
		return false
	}
	select {
	case <-j.done:
		return false
	default:
	}
	return j.loopCtx.Err() == nil
}

// Run blocks until ctx is cancelled. It suits callers that manage the
// goroutine themselves (e.g. an errgroup).
func (j *Janitor) Run(ctx context.Context) error {
	j.Start(ctx)
	<-ctx.Done()
	j.Stop()
	return nil
}

func (j *Janitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	log := observability.LoggerFromContext(ctx).With("component", "session.janitor")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("janitor stopping")
			return
		case <-ticker.C:
			j.sweep(ctx, log)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context, log *slog.Logger) {
	start := time.Now()
	removed := j.store.CleanupExpired()
	if removed > 0 {
		log.InfoContext(ctx, "cleaned up expired sessions",
			"removed", removed,
			"remaining", j.store.SessionCount(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
