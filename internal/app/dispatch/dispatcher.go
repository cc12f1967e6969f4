package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

const DefaultStoreTimeout = 5 * time.Second

// Error keys carried in ExecutionResult.Error.
const (
	ErrKeyMissingTitle = "missing task title"
	ErrKeyNotFound     = "task not found"
	ErrKeyMultiple     = "multiple tasks found"
	ErrKeyEmptyUpdate  = "empty update"
	ErrKeyNotCompleted = "task not completed"
	ErrKeyDeleteFailed = "delete failed"
	ErrKeyUnknown      = "unknown action"
	ErrKeyInternal     = "internal error"
)

// Dispatcher runs an unambiguous intent against the task store.
type Dispatcher struct {
	store   domain.TaskStore
	timeout time.Duration
}

func NewDispatcher(store domain.TaskStore, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Dispatcher{store: store, timeout: timeout}
}

// Execute never returns an error: store failures and panics become failure results.
func (d *Dispatcher) Execute(ctx context.Context, in domain.Intent) (res domain.ExecutionResult) {
	log := observability.LoggerFromContext(ctx).With("component", "dispatch", "action", in.Action)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while executing intent", "panic", r)
			res = failure(in.Action, ErrKeyInternal, "I encountered an error while working on your tasks.")
		}
	}()

	switch in.Action {
	case domain.ActionCreate:
		res = d.create(ctx, in)
	case domain.ActionComplete:
		res = d.complete(ctx, in)
	case domain.ActionRead:
		res = d.read(ctx, in)
	case domain.ActionUpdate:
		res = d.update(ctx, in)
	case domain.ActionDelete:
		res = d.remove(ctx, in)
	default:
		res = failure(in.Action, ErrKeyUnknown, "I don't know how to handle that action.")
	}

	if !res.Success {
		log.Info("intent not executed", "error", res.Error)
	}
	return res
}

func (d *Dispatcher) create(ctx context.Context, in domain.Intent) domain.ExecutionResult {
	if in.Title == "" {
		return failure(in.Action, ErrKeyMissingTitle, "I need to know what task you want to create.")
	}

	t, err := d.store.Create(ctx, domain.NewTask{
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: false,
	})
	if err != nil {
		d.logStoreError(ctx, "create", err)
		return failure(in.Action, ErrKeyInternal, "I couldn't create that task. Please try again.")
	}
	return domain.ExecutionResult{Success: true, Action: in.Action, Task: t}
}

func (d *Dispatcher) complete(ctx context.Context, in domain.Intent) domain.ExecutionResult {
	target, failed, ok := d.resolve(ctx, in, "I couldn't find a task matching that description. Could you be more specific?")
	if !ok {
		return failed
	}

	t, err := d.store.Toggle(ctx, target.ID)
	if err != nil {
		d.logStoreError(ctx, "toggle", err)
		return failure(in.Action, ErrKeyInternal, "I encountered an error while completing that task.")
	}
	if !t.IsCompleted {
		return failure(in.Action, ErrKeyNotCompleted, "I couldn't mark that task as complete. Please try again.")
	}
	return domain.ExecutionResult{Success: true, Action: in.Action, Task: t}
}

func (d *Dispatcher) read(ctx context.Context, in domain.Intent) domain.ExecutionResult {
	var (
		tasks []*domain.Task
		err   error
	)

	qf := in.QueryFilter
	switch {
	case qf != nil && qf.IsCompleted != nil:
		tasks, err = d.store.ListByCompletion(ctx, *qf.IsCompleted)
	case qf != nil && qf.SearchTerm != "":
		var all []*domain.Task
		all, err = d.store.List(ctx)
		term := strings.ToLower(qf.SearchTerm)
		for _, t := range all {
			if strings.Contains(strings.ToLower(t.Title), term) {
				tasks = append(tasks, t)
			}
		}
	default:
		tasks, err = d.store.List(ctx)
	}
	if err != nil {
		d.logStoreError(ctx, "list", err)
		return failure(in.Action, ErrKeyInternal, "I couldn't retrieve your tasks. Please try again.")
	}

	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return domain.ExecutionResult{
		Success:    true,
		Action:     in.Action,
		Tasks:      tasks,
		MatchCount: len(tasks),
	}
}

func (d *Dispatcher) update(ctx context.Context, in domain.Intent) domain.ExecutionResult {
	target, failed, ok := d.resolve(ctx, in, "I couldn't find a task matching that description.")
	if !ok {
		return failed
	}

	var patch domain.TaskPatch
	switch {
	case in.NewTitle != "":
		patch.Title = &in.NewTitle
	case in.Title != "":
		// Without new_title the title is both the search key and the new value.
		patch.Title = &in.Title
	}
	if in.Description != "" {
		patch.Description = &in.Description
	}
	if patch.Empty() {
		return failure(in.Action, ErrKeyEmptyUpdate, "What would you like me to change about that task?")
	}

	t, err := d.store.Update(ctx, target.ID, patch)
	if err != nil {
		d.logStoreError(ctx, "update", err)
		return failure(in.Action, ErrKeyInternal, "I encountered an error while updating that task.")
	}
	return domain.ExecutionResult{Success: true, Action: in.Action, Task: t}
}

func (d *Dispatcher) remove(ctx context.Context, in domain.Intent) domain.ExecutionResult {
	target, failed, ok := d.resolve(ctx, in, "I couldn't find a task matching that description.")
	if !ok {
		return failed
	}

	title := target.Title
	deleted, err := d.store.Delete(ctx, target.ID)
	if err != nil {
		d.logStoreError(ctx, "delete", err)
		return failure(in.Action, ErrKeyInternal, "I encountered an error while deleting that task.")
	}
	if !deleted {
		return failure(in.Action, ErrKeyDeleteFailed, "I couldn't delete that task.")
	}
	return domain.ExecutionResult{Success: true, Action: in.Action, DeletedTitle: title}
}

// resolve maps the intent to exactly one task or to the failure result to return.
func (d *Dispatcher) resolve(ctx context.Context, in domain.Intent, notFoundMsg string) (*domain.Task, domain.ExecutionResult, bool) {
	r, err := Resolve(ctx, d.store, in)
	if err != nil {
		d.logStoreError(ctx, "resolve", err)
		return nil, failure(in.Action, ErrKeyInternal, "I encountered an error while looking up that task."), false
	}

	switch r.Kind {
	case Single:
		return r.Task, domain.ExecutionResult{}, true
	case Multiple:
		var b strings.Builder
		b.WriteString("I found multiple tasks. Which one did you mean?")
		for _, t := range r.Candidates {
			b.WriteString("\n- ")
			b.WriteString(t.Title)
		}
		res := failure(in.Action, ErrKeyMultiple, b.String())
		res.Tasks = r.Candidates
		res.MatchCount = r.Count
		return nil, res, false
	default:
		return nil, failure(in.Action, ErrKeyNotFound, notFoundMsg), false
	}
}

func (d *Dispatcher) logStoreError(ctx context.Context, op string, err error) {
	observability.LoggerFromContext(ctx).Error("task store call failed", "op", op, "error", err)
}

func failure(action domain.Action, key, message string) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success: false,
		Action:  action,
		Error:   key,
		Message: message,
	}
}
