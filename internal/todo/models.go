package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListFilter holds the optional list constraints. Nil fields impose none.
type ListFilter struct {
	Completed *bool
	Search    *string
	Limit     int
}

const DefaultListLimit = 100

// Optional is a JSON field that records whether it was present in the body
// and whether it was an explicit null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Patch lists the mutable fields of a Todo. Only fields with Set are written.
type Patch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Completed   Optional[bool]   `json:"completed"`
}

func (p Patch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set
}

// Validate rejects null or empty titles and a null completed. Titles are
// kept exactly as sent, surrounding whitespace included.
func (p *Patch) Validate() error {
	if p.Title.Set {
		if p.Title.Null {
			return &ValidationError{Field: "title", Message: "cannot be null"}
		}
		if p.Title.Value == "" {
			return &ValidationError{Field: "title", Message: "cannot be empty"}
		}
	}
	if p.Completed.Set && p.Completed.Null {
		return &ValidationError{Field: "completed", Message: "cannot be null"}
	}
	return nil
}

type createTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (r *createTodoRequest) Validate() error {
	if r.Title == nil {
		return &ValidationError{Field: "title", Message: "field required"}
	}
	if *r.Title == "" {
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	return nil
}

// ValidationError rejects a request before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
