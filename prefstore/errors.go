package prefstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key resolves to no value. It is an
	// expected outcome, not a failure.
	ErrNotFound = errors.New("prefstore: not found")

	// ErrInvalidArgument is returned for blank tenants or keys. Never
	// retried.
	ErrInvalidArgument = errors.New("prefstore: invalid argument")
)

// StoreError wraps a failure of the underlying store itself. Callers
// decide whether to retry or propagate; no retry happens here.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("prefstore: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
