package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PabloGalante/taskchat/internal/domain"
)

// MaxCandidates caps the disambiguation list shown to the user.
const MaxCandidates = 5

type ResolutionKind int

const (
	NotFound ResolutionKind = iota
	Single
	Multiple
)

func (k ResolutionKind) String() string {
	switch k {
	case Single:
		return "single"
	case Multiple:
		return "multiple"
	default:
		return "not_found"
	}
}

// Resolution is the outcome of mapping an intent to a stored task.
// Candidates is capped at MaxCandidates; Count is the true match count.
type Resolution struct {
	Kind       ResolutionKind
	Task       *domain.Task
	Candidates []*domain.Task
	Count      int
}

// Resolve finds the task an intent refers to. An explicit id wins; otherwise
// exact case-insensitive title matches are tried before substring matches.
func Resolve(ctx context.Context, store domain.TaskStore, in domain.Intent) (Resolution, error) {
	if in.TaskID != nil {
		t, err := store.Get(ctx, *in.TaskID)
		if errors.Is(err, domain.ErrTaskNotFound) {
			return Resolution{Kind: NotFound}, nil
		}
		if err != nil {
			return Resolution{}, fmt.Errorf("get task %d: %w", *in.TaskID, err)
		}
		return Resolution{Kind: Single, Task: t, Count: 1}, nil
	}

	key := strings.ToLower(strings.TrimSpace(in.Title))
	if key == "" {
		return Resolution{Kind: NotFound}, nil
	}

	all, err := store.List(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("list tasks: %w", err)
	}

	var exact []*domain.Task
	for _, t := range all {
		if strings.ToLower(t.Title) == key {
			exact = append(exact, t)
		}
	}
	if len(exact) > 0 {
		return fromMatches(exact), nil
	}

	var partial []*domain.Task
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Title), key) {
			partial = append(partial, t)
		}
	}
	return fromMatches(partial), nil
}

func fromMatches(matches []*domain.Task) Resolution {
	switch len(matches) {
	case 0:
		return Resolution{Kind: NotFound}
	case 1:
		return Resolution{Kind: Single, Task: matches[0], Count: 1}
	}
	shown := matches
	if len(shown) > MaxCandidates {
		shown = shown[:MaxCandidates]
	}
	return Resolution{
		Kind:       Multiple,
		Candidates: shown,
		Count:      len(matches),
	}
}
