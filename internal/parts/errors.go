package parts

import "errors"

var (
	// ErrPartNotFound is returned when a part id does not resolve.
	ErrPartNotFound = errors.New("part not found")
	// ErrInsufficientStock is returned when an outbound movement would take stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for quantities the movement kind does not accept.
	ErrInvalidQuantity = errors.New("invalid quantity")
)
