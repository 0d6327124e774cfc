package errors

import "errors"

var (
	ErrNotFound = errors.New("subscription not found")

	ErrInvalidID = errors.New("invalid subscription ID format")

	ErrDuplicateEmail = errors.New("email already subscribed")

	ErrTokenNotFound = errors.New("verification token not found")
)
