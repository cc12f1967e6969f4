package domain

import (
	"context"
	"errors"
)

// ErrTaskNotFound is returned by TaskStore implementations for unknown ids.
var ErrTaskNotFound = errors.New("task not found")

// Task is the record owned by the task store collaborator.
type Task struct {
	ID          TaskID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// NewTask carries the fields accepted on creation.
type NewTask struct {
	Title       string
	Description string
	IsCompleted bool
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	IsCompleted *bool
}

// Empty reports whether the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil
}

// TaskStore is the persistence port for task records.
type TaskStore interface {
	Create(ctx context.Context, in NewTask) (*Task, error)
	Get(ctx context.Context, id TaskID) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	ListByCompletion(ctx context.Context, completed bool) ([]*Task, error)
	Update(ctx context.Context, id TaskID, patch TaskPatch) (*Task, error)
	Toggle(ctx context.Context, id TaskID) (*Task, error)
	Delete(ctx context.Context, id TaskID) (bool, error)
}
