package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record satisfies a lookup
	ErrNotFound = errors.New("face record not found")

	// ErrDuplicateImage is returned when a record with the same image name already exists
	ErrDuplicateImage = errors.New("image already exists in the database")

	// ErrInvalidEmbedding is returned when a stored embedding blob cannot be decoded
	ErrInvalidEmbedding = errors.New("invalid embedding data")
)

// StoreError wraps a storage failure with the operation that caused it
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("face store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
