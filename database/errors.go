package database

import (
	"errors"
	"fmt"
)

// Refresh-level terminal errors. Defined here so the HTTP layer can
// map them to status codes without depending on the orchestrator.
var (
	// ErrRefreshInProgress rejects a refresh requested while another
	// is still running. Requests are rejected, never queued.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrDataUnavailable fails a refresh that fetched zero snapshots,
	// leaving nothing to aggregate.
	ErrDataUnavailable = errors.New("no market data could be fetched")
)

// DBError represents a storage operation error with context
type DBError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *DBError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *DBError) Unwrap() error {
	return e.Err
}

// WrapDBError wraps a storage error with operation context
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{
		Operation: operation,
		Err:       err,
	}
}

// NotFoundError represents a lookup failure for a named resource
type NotFoundError struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a new NotFoundError with an identifier
func NewNotFoundError(resource string, id interface{}) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// AlreadyMemberError is returned when a stock already has an active
// membership row for the requested universe.
type AlreadyMemberError struct {
	StockID      int64
	UniverseType string
}

// Error implements the error interface
func (e *AlreadyMemberError) Error() string {
	return fmt.Sprintf("stock %d is already an active member of universe %q", e.StockID, e.UniverseType)
}

// NotMemberError is returned when closing a membership that does not
// have an active row.
type NotMemberError struct {
	StockID      int64
	UniverseType string
}

// Error implements the error interface
func (e *NotMemberError) Error() string {
	return fmt.Sprintf("stock %d has no active membership in universe %q", e.StockID, e.UniverseType)
}
