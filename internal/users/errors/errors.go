package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid user ID format")

	// ErrDuplicateEmail is returned when the unique email index rejects a write.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateTel is returned when the unique tel index rejects a write.
	ErrDuplicateTel = errors.New("telephone already registered")
)
