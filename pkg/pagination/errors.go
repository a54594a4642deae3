package pagination

import (
	"fmt"
	"time"
)

// InvalidRangeError is returned when a range does not end after it starts.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

// Error implements the error interface.
func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

// PreconditionError is returned when an operation runs before its input exists.
type PreconditionError struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// FetchError wraps a failure of one request in a plan. The whole batch is
// aborted when one is returned.
type FetchError struct {
	Index int
	URL   string
	Err   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch request %d (%s): %v", e.Index, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// InvalidPolicyError is returned for an unknown remainder policy name.
type InvalidPolicyError struct {
	Value string
}

// Error implements the error interface.
func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("unknown remainder policy %q (want drop or include)", e.Value)
}
