package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or its id is malformed.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)
