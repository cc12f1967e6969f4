package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/taskchat/internal/domain"
)

// TaskStore is an in-memory domain.TaskStore with sequential ids.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  map[domain.TaskID]*domain.Task
	nextID domain.TaskID
	now    func() time.Time
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:  make(map[domain.TaskID]*domain.Task),
		nextID: 1,
		now:    time.Now,
	}
}

func (s *TaskStore) Create(_ context.Context, in domain.NewTask) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := &domain.Task{
		ID:          s.nextID,
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t
	s.nextID++

	cp := *t
	return &cp, nil
}

func (s *TaskStore) Get(_ context.Context, id domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *TaskStore) List(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(*domain.Task) bool { return true }), nil
}

func (s *TaskStore) ListByCompletion(_ context.Context, completed bool) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(t *domain.Task) bool { return t.IsCompleted == completed }), nil
}

func (s *TaskStore) Update(_ context.Context, id domain.TaskID, patch domain.TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.IsCompleted != nil {
		t.IsCompleted = *patch.IsCompleted
	}
	t.UpdatedAt = s.now()

	cp := *t
	return &cp, nil
}

func (s *TaskStore) Toggle(_ context.Context, id domain.TaskID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	t.IsCompleted = !t.IsCompleted
	t.UpdatedAt = s.now()

	cp := *t
	return &cp, nil
}

func (s *TaskStore) Delete(_ context.Context, id domain.TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

// collectLocked returns copies ordered by id, i.e. creation order.
func (s *TaskStore) collectLocked(keep func(*domain.Task) bool) []*domain.Task {
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ domain.TaskStore = (*TaskStore)(nil)
