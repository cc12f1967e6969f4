// Package sqlite is a domain.TaskStore on database/sql with the pure-Go
// modernc.org/sqlite driver. Schema changes are goose migrations embedded
// in the binary.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/taskchat/internal/domain"
	"github.com/PabloGalante/taskchat/internal/observability"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies pending migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		observability.LoggerFromContext(ctx).Info("applied migration",
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const taskColumns = "id, title, description, is_completed, created_at, updated_at"

func (s *Store) Create(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, is_completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.IsCompleted, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert task id: %w", err)
	}
	return s.Get(ctx, domain.TaskID(id))
}

func (s *Store) Get(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, int64(id))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

func (s *Store) ListByCompletion(ctx context.Context, completed bool) ([]*domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE is_completed = ? ORDER BY id`, completed)
}

func (s *Store) Update(ctx context.Context, id domain.TaskID, patch domain.TaskPatch) (*domain.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET
			title = COALESCE(?, title),
			description = COALESCE(?, description),
			is_completed = COALESCE(?, is_completed),
			updated_at = ?
		WHERE id = ?`,
		nullString(patch.Title), nullString(patch.Description), nullBool(patch.IsCompleted),
		s.now().UTC().UnixMilli(), int64(id),
	)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Toggle(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET is_completed = 1 - is_completed, updated_at = ? WHERE id = ?`,
		s.now().UTC().UnixMilli(), int64(id),
	)
	if err != nil {
		return nil, fmt.Errorf("toggle task %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id domain.TaskID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, int64(id))
	if err != nil {
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*domain.Task, error) {
	var (
		t                domain.Task
		id               int64
		created, updated int64
	)
	if err := sc.Scan(&id, &t.Title, &t.Description, &t.IsCompleted, &created, &updated); err != nil {
		return nil, err
	}
	t.ID = domain.TaskID(id)
	t.CreatedAt = time.UnixMilli(created).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return &t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

var _ domain.TaskStore = (*Store)(nil)
