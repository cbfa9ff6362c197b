package metadata

import (
	"errors"
)

var (
	// ErrNotFound is returned when a metadata record does not exist or is not visible
	ErrNotFound = errors.New("metadata not found")

	// ErrValueUnset is returned when creating or updating with a nil value
	ErrValueUnset = errors.New("metadata value is not set")

	// ErrInvalidValue is returned for values that cannot be encoded as their type
	ErrInvalidValue = errors.New("invalid metadata value")

	// ErrInvalidEntity is returned when the owning entity GUID is zero
	ErrInvalidEntity = errors.New("metadata requires a non-zero entity guid")

	// ErrInvalidName is returned when the metadata name is empty
	ErrInvalidName = errors.New("metadata name is required")

	// ErrPermissionDenied is returned when the principal may not edit the record
	ErrPermissionDenied = errors.New("permission denied")

	// ErrVetoed is returned when an event subscriber rejects a lifecycle event
	ErrVetoed = errors.New("event vetoed by subscriber")

	// ErrUnconstrainedBatch is returned when a batch operation has no filter
	ErrUnconstrainedBatch = errors.New("batch operation requires at least one constraint")

	// ErrHiddenNotVisible is returned by EnableAll when disabled records are not visible
	ErrHiddenNotVisible = errors.New("enabling metadata requires hidden records to be visible")

	// ErrInvalidQuery is returned for queries that fail validation
	ErrInvalidQuery = errors.New("invalid metadata query")

	// ErrBatchIncomplete is returned when a batch operation skipped records
	// it was not allowed to change
	ErrBatchIncomplete = errors.New("batch operation skipped records")
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied returns true if the error is ErrPermissionDenied
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsVetoed returns true if the error is ErrVetoed
func IsVetoed(err error) bool {
	return errors.Is(err, ErrVetoed)
}
