package data

import "errors"

// Store-level failures shared by every backend. Services translate these into
// classified errors.
var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidID is returned when an identifier is structurally malformed
	// for the backend.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrConflict is returned when a conditional update or delete matched
	// nothing because the record no longer satisfies its precondition.
	ErrConflict = errors.New("record changed concurrently")
)
