package errors

import "errors"

var (
	ErrNotFound = errors.New("product not found")

	ErrInvalidID = errors.New("invalid product ID format")

	ErrInsufficientStock = errors.New("insufficient stock")
)
