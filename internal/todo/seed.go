package todo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DemoTodo is one demonstration row.
type DemoTodo struct {
	Title       string
	Description string
	Completed   bool
}

// DemoTodos are inserted by stores built WithDemoData.
var DemoTodos = []DemoTodo{
	{Title: "Try the Todo API", Description: "Create, list and toggle a few todos"},
	{Title: "Read the health endpoint", Description: "GET /health should report healthy", Completed: true},
	{Title: "Buy milk"},
}

func (s *Store) seedDemo(ctx context.Context) error {
	return s.withTx(ctx, "seed", func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for _, d := range DemoTodos {
			var desc *string
			if d.Description != "" {
				v := d.Description
				desc = &v
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO todos (id, title, description, completed, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.NewString(), d.Title, nullableString(desc), d.Completed, now())
			if err != nil {
				return err
			}
		}
		return nil
	})
}
