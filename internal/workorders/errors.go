package workorders

import "errors"

var (
	// ErrOrderNotFound is returned when a work order id does not resolve.
	ErrOrderNotFound = errors.New("work order not found")
	// ErrTransitionNotAllowed is returned when the status policy rejects a change.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrDuplicateOrderNumber is returned when a supplied order number is taken.
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)
