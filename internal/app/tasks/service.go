package tasks

import (
	"context"
	"fmt"

	"github.com/PabloGalante/taskchat/internal/domain"
)

// Service exposes read access to the task list outside of chat.
type Service struct {
	store domain.TaskStore
}

func NewService(store domain.TaskStore) *Service {
	return &Service{
		store: store,
	}
}

// ListTasks returns every task, or only those matching completed when it is set.
func (s *Service) ListTasks(ctx context.Context, completed *bool) ([]*domain.Task, error) {
	var (
		out []*domain.Task
		err error
	)
	if completed != nil {
		out, err = s.store.ListByCompletion(ctx, *completed)
	} else {
		out, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if out == nil {
		out = []*domain.Task{}
	}
	return out, nil
}
