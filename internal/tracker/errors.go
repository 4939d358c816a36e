package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by Load when two entities share a RUT.
	ErrDuplicateKey = errors.New("duplicate entity id")
	// ErrNotFound is returned by Get for an unknown RUT.
	ErrNotFound = errors.New("entity not found")
)

// DuplicateKeyError names the conflicting id and the positions that collided.
type DuplicateKeyError struct {
	ID     string
	First  int
	Second int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate entity id %q at positions %d and %d", e.ID, e.First, e.Second)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// NotFoundError names the id that was queried.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
