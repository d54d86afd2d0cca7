package history

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by GetRun when no run has the given ID.
var ErrRunNotFound = errors.New("history: run not found")

// StorageError represents an error from the history store.
type StorageError struct {
	Operation string // Operation that failed ("open", "save", "query", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Cause:     cause,
	}
}
