package api

import "errors"

var (
	// ErrStoreUnavailable indicates a transport or connection failure to the
	// queue or schedule store. It is fatal for the current operation only;
	// polling loops log it and retry on their next tick.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrValidation indicates a malformed Task or ScheduleEntry. Values that
	// fail validation are rejected before enqueue and never stored.
	ErrValidation = errors.New("validation failed")

	// ErrFillFailure indicates the automated field fill errored or returned
	// content that could not be parsed.
	ErrFillFailure = errors.New("field fill failed")

	// ErrCallbackFailure indicates the downstream callback endpoint was
	// unreachable or returned a non-success status.
	ErrCallbackFailure = errors.New("callback invocation failed")

	// ErrStepNotFound is returned when a step definition is not found.
	// Schedule lookups report absence through their return values instead:
	// an unknown id is an expected outcome there, not a failure.
	ErrStepNotFound = errors.New("step not found")
)
