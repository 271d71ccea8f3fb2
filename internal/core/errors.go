package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDegenerateInput    = errors.New("degenerate regression input")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
)

// ValidationError names the first offending field of a rejected record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError addresses a record either by position or by ID.
type NotFoundError struct {
	Index int
	ID    int64
	ByID  bool
}

func (e *NotFoundError) Error() string {
	if e.ByID {
		return fmt.Sprintf("transaction with id %d not found", e.ID)
	}
	return fmt.Sprintf("transaction at index %d not found", e.Index)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the durable medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageUnavailable, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// Unavailable wraps err as a StorageError. A nil err yields nil, and errors
// that already carry a domain meaning are returned untouched.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrNotFound) || errors.As(err, &ve) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IndexNotFound is a convenience constructor for positional misses.
func IndexNotFound(index int) error { return &NotFoundError{Index: index} }

// IDNotFound is a convenience constructor for ID misses.
func IDNotFound(id int64) error { return &NotFoundError{ID: id, ByID: true} }
