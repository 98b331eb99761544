package student

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes core errors.
type ErrorCode string

const (
	// CodeValidation indicates a name or course failed validation.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeNotFound indicates an update or delete targeted an absent id.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeStorage indicates the underlying database failed.
	CodeStorage ErrorCode = "STORAGE"

	// CodeDisposed indicates an intent was issued to a disposed controller.
	CodeDisposed ErrorCode = "DISPOSED"
)

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("record not found")

// ErrDisposed is returned for intents issued after the controller was disposed.
var ErrDisposed = errors.New("controller disposed")

// ValidationError reports an empty or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", CodeValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s (field=%s)", CodeValidation, e.Message, e.Field)
}

// NotFoundError reports that no record with ID exists.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no record with id %d", CodeNotFound, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageError wraps a database failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStorage returns true if err is or wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Code returns the ErrorCode for err, or "" when err is nil or unclassified.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeValidation
	case IsNotFound(err):
		return CodeNotFound
	case IsStorage(err):
		return CodeStorage
	case errors.Is(err, ErrDisposed):
		return CodeDisposed
	default:
		return ""
	}
}
