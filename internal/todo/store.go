package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const schema = `
	CREATE TABLE IF NOT EXISTS todos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)
`

const selectColumns = `SELECT id, title, description, completed, created_at FROM todos`

// StorageError wraps any failure of the backing database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("todo store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type Option func(*Store)

// WithDriver selects SQL dialect details. Defaults to sqlite3.
func WithDriver(driver string) Option {
	return func(s *Store) { s.driver = driver }
}

// WithDemoData makes Init seed DemoTodos into an empty table.
func WithDemoData() Option {
	return func(s *Store) { s.seed = true }
}

// Store persists todos in the todos table.
type Store struct {
	db     *sql.DB
	driver string
	seed   bool

	initMu sync.Mutex
	ready  bool
}

// NewStore wraps db; call Init before use.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, driver: "sqlite3"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates the table and seeds demo rows if configured. After the first
// success further calls return immediately; a failed attempt is retried.
func (s *Store) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &StorageError{Op: "init", Err: err}
	}
	if s.seed {
		if err := s.seedDemo(ctx); err != nil {
			return err
		}
	}
	s.ready = true
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in one transaction and wraps any failure as a StorageError.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	// no-op after a successful commit
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		var se *StorageError
		if errors.As(err, &se) {
			return err
		}
		return &StorageError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

// Create inserts a new incomplete todo with a fresh id.
func (s *Store) Create(ctx context.Context, title string, description *string) (Todo, error) {
	t := Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now(),
	}

	err := s.withTx(ctx, "create", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO todos (id, title, description, completed, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, t.Title, nullableString(t.Description), t.Completed, t.CreatedAt)
		return err
	})
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

// Get reports false when no todo has the id.
func (s *Store) Get(ctx context.Context, id string) (Todo, bool, error) {
	t, err := scanTodo(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id), s.driver)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, false, nil
	}
	if err != nil {
		return Todo{}, false, &StorageError{Op: "get", Err: err}
	}
	return t, true, nil
}

// List returns todos matching every filter that is set, at most f.Limit.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Todo, error) {
	var (
		where []string
		args  []any
	)
	if f.Completed != nil {
		args = append(args, *f.Completed)
		where = append(where, "completed = "+placeholder(len(args)))
	}
	if f.Search != nil {
		args = append(args, *f.Search)
		where = append(where, containsExpr(s.driver, "title", placeholder(len(args))))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += " LIMIT " + placeholder(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	todos := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows, s.driver)
		if err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return todos, nil
}

// Update writes only the fields set in p. An empty patch returns the
// current record unchanged.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Todo, bool, error) {
	var (
		set  []string
		args []any
	)
	if p.Title.Set {
		args = append(args, p.Title.Value)
		set = append(set, "title = "+placeholder(len(args)))
	}
	if p.Description.Set {
		args = append(args, optionalString(p.Description))
		set = append(set, "description = "+placeholder(len(args)))
	}
	if p.Completed.Set {
		args = append(args, p.Completed.Value)
		set = append(set, "completed = "+placeholder(len(args)))
	}

	var (
		updated Todo
		found   bool
	)
	err := s.withTx(ctx, "update", func(tx *sql.Tx) error {
		if len(set) > 0 {
			args = append(args, id)
			res, err := tx.ExecContext(ctx,
				"UPDATE todos SET "+strings.Join(set, ", ")+" WHERE id = "+placeholder(len(args)),
				args...)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return nil
			}
		}
		var err error
		updated, found, err = s.getTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return Todo{}, false, err
	}
	return updated, found, nil
}

// Toggle negates completed and returns the new state in one transaction.
func (s *Store) Toggle(ctx context.Context, id string) (Todo, bool, error) {
	var (
		toggled Todo
		found   bool
	)
	err := s.withTx(ctx, "toggle", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE todos SET completed = NOT completed WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		toggled, found, err = s.getTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return Todo{}, false, err
	}
	return toggled, found, nil
}

// Delete reports false when nothing was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, "delete", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Store) getTx(ctx context.Context, tx *sql.Tx, id string) (Todo, bool, error) {
	t, err := scanTodo(tx.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id), s.driver)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, false, nil
	}
	if err != nil {
		return Todo{}, false, err
	}
	return t, true, nil
}
