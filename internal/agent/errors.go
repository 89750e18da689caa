package agent

import "errors"

// Messages are surfaced verbatim as check details.
//
//nolint:staticcheck // ST1005
var (
	// ErrInvalidTimeRange is returned when the end time precedes the start time.
	ErrInvalidTimeRange = errors.New("End time is earlier than start time")

	// ErrUnsolvable is returned when no classification rule applies.
	ErrUnsolvable = errors.New("Unable to solve the given question")

	// ErrNumberOutOfRange is returned when an extracted quantity does not fit in an int.
	ErrNumberOutOfRange = errors.New("number out of range")

	// ErrAttemptPanic wraps a panic recovered inside an attempt.
	ErrAttemptPanic = errors.New("attempt panicked")

	// ErrMalformedModelOutput is returned when a model response cannot be decoded.
	ErrMalformedModelOutput = errors.New("malformed model output")

	errNoSolution = errors.New("executor returned no solution")
)
