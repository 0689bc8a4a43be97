package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthorized       = errors.New("not allowed")
	ErrConflict           = errors.New("concurrent modification")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")

	ErrBookingNotFound = errors.New("booking not found")
	ErrMessageNotFound = errors.New("message record not found")

	// Synchronization failures. ErrTransientUpstream and ErrUpstream mean the
	// external call itself failed (safe to retry the whole reconcile);
	// ErrPersistence means the external call succeeded but the local record
	// could not be written.
	ErrTransientUpstream = errors.New("messaging platform temporarily unavailable")
	ErrUpstream          = errors.New("messaging platform rejected the call")
	ErrPersistence       = errors.New("message record not persisted")
)
