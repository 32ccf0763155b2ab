package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrDuplicateCompany is returned when the (user, companies) unique index rejects a write.
	ErrDuplicateCompany = errors.New("company already booked by this user")

	// ErrDuplicateDay is returned when the (user, day) unique index rejects a write.
	ErrDuplicateDay = errors.New("day already booked by this user")

	ErrLockHeld = errors.New("owner lock is held by another request")
)
