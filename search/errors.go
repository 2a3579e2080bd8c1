package search

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document id resolves to nothing. It is an
// expected outcome, not a failure.
var ErrNotFound = errors.New("search: not found")

// StoreError wraps a failure of the search store itself.
type StoreError struct {
	Op    string
	Index string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("search: %s %s: %v", e.Op, e.Index, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// SchemaError marks a stored document that no longer conforms to the
// listing shape. Documents carrying it are dropped from result sets, never
// fatal to the whole request.
type SchemaError struct {
	ID  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("search: document %s failed validation: %v", e.ID, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
