package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/taskchat/internal/domain"
)

const (
	tasksCollection    = "tasks"
	countersCollection = "counters"
	taskCounterDoc     = "tasks"
)

// Store is a domain.TaskStore on Firestore. Numeric task ids come from a
// counter document bumped inside the create transaction.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) tasksCol() *firestore.CollectionRef {
	return s.client.Collection(tasksCollection)
}

func (s *Store) taskDoc(id domain.TaskID) *firestore.DocumentRef {
	return s.tasksCol().Doc(strconv.FormatInt(int64(id), 10))
}

func (s *Store) counterDoc() *firestore.DocumentRef {
	return s.client.Collection(countersCollection).Doc(taskCounterDoc)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type taskRecord struct {
	ID          int64     `firestore:"id"`
	Title       string    `firestore:"title"`
	Description string    `firestore:"description"`
	IsCompleted bool      `firestore:"is_completed"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

type counterDoc struct {
	Next int64 `firestore:"next"`
}

func (d taskRecord) toDomain() *domain.Task {
	return &domain.Task{
		ID:          domain.TaskID(d.ID),
		Title:       d.Title,
		Description: d.Description,
		IsCompleted: d.IsCompleted,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func decodeTask(snap *firestore.DocumentSnapshot) (*domain.Task, error) {
	var doc taskRecord
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(), nil
}

// ─────────────────────────────────────────
// TaskStore implementation
// ─────────────────────────────────────────

func (s *Store) Create(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	var created taskRecord

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		next := int64(1)
		snap, err := tx.Get(s.counterDoc())
		switch {
		case err == nil:
			var c counterDoc
			if err := snap.DataTo(&c); err != nil {
				return fmt.Errorf("decode counter: %w", err)
			}
			if c.Next > 0 {
				next = c.Next
			}
		case isNotFound(err):
		default:
			return fmt.Errorf("read counter: %w", err)
		}

		now := s.now().UTC()
		created = taskRecord{
			ID:          next,
			Title:       in.Title,
			Description: in.Description,
			IsCompleted: in.IsCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := tx.Set(s.counterDoc(), counterDoc{Next: next + 1}); err != nil {
			return err
		}
		return tx.Create(s.taskDoc(domain.TaskID(next)), created)
	})
	if err != nil {
		return nil, fmt.Errorf("firestore Create: %w", err)
	}
	return created.toDomain(), nil
}

func (s *Store) Get(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	snap, err := s.taskDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("firestore Get: %w", err)
	}
	return decodeTask(snap)
}

func (s *Store) List(ctx context.Context) ([]*domain.Task, error) {
	return s.collect(ctx, s.tasksCol().Query)
}

func (s *Store) ListByCompletion(ctx context.Context, completed bool) ([]*domain.Task, error) {
	return s.collect(ctx, s.tasksCol().Where("is_completed", "==", completed))
}

func (s *Store) Update(ctx context.Context, id domain.TaskID, patch domain.TaskPatch) (*domain.Task, error) {
	return s.mutate(ctx, id, func(doc *taskRecord) {
		if patch.Title != nil {
			doc.Title = *patch.Title
		}
		if patch.Description != nil {
			doc.Description = *patch.Description
		}
		if patch.IsCompleted != nil {
			doc.IsCompleted = *patch.IsCompleted
		}
	})
}

func (s *Store) Toggle(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	return s.mutate(ctx, id, func(doc *taskRecord) {
		doc.IsCompleted = !doc.IsCompleted
	})
}

func (s *Store) Delete(ctx context.Context, id domain.TaskID) (bool, error) {
	deleted := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = false
		if _, err := tx.Get(s.taskDoc(id)); err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		deleted = true
		return tx.Delete(s.taskDoc(id))
	})
	if err != nil {
		return false, fmt.Errorf("firestore Delete: %w", err)
	}
	return deleted, nil
}

// mutate applies change to the stored task inside a transaction.
func (s *Store) mutate(ctx context.Context, id domain.TaskID, change func(*taskRecord)) (*domain.Task, error) {
	var out taskRecord
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.taskDoc(id))
		if err != nil {
			if isNotFound(err) {
				return domain.ErrTaskNotFound
			}
			return err
		}
		if err := snap.DataTo(&out); err != nil {
			return fmt.Errorf("decode task: %w", err)
		}
		change(&out)
		out.UpdatedAt = s.now().UTC()
		return tx.Set(s.taskDoc(id), out)
	})
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore mutate %d: %w", id, err)
	}
	return out.toDomain(), nil
}

// collect runs q and returns tasks ordered by id. Sorting happens here so
// no composite index is needed for the completion filter.
func (s *Store) collect(ctx context.Context, q firestore.Query) ([]*domain.Task, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []*domain.Task{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore list tasks: %w", err)
		}
		t, err := decodeTask(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ domain.TaskStore = (*Store)(nil)
