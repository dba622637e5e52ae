package stats

import (
	"context"
	"database/sql"
	"fmt"
)

type Summary struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

type Store struct {
	db *sql.DB
}

// NewStore reads counters from the todos table in db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Summary counts all, completed and pending todos in one query.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	// aggregate counts over the todos table
	var summary Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed
		FROM todos
	`)
	if err := row.Scan(&summary.Total, &summary.Completed); err != nil {
		return Summary{}, fmt.Errorf("stats summary: %w", err)
	}
	summary.Pending = summary.Total - summary.Completed
	return summary, nil
}
