package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrLeaseHeld signals that another worker currently holds the lead's
	// lease. Not a failure: the caller defers and lets the queue's backoff
	// re-present the work item.
	ErrLeaseHeld = errors.New("lease held")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
