package pagination

import (
	"time"
)

// WindowSize is the width of one request window.
const WindowSize = 90 * 24 * time.Hour

// RemainderPolicy decides what happens to the tail of a range that is shorter
// than WindowSize.
type RemainderPolicy int

const (
	// DropRemainder discards the tail. Ranges shorter than WindowSize yield no windows.
	DropRemainder RemainderPolicy = iota

	// IncludeRemainder emits the tail as a final, shorter window.
	IncludeRemainder
)

// String implements fmt.Stringer.
func (p RemainderPolicy) String() string {
	switch p {
	case DropRemainder:
		return "drop"
	case IncludeRemainder:
		return "include"
	default:
		return "unknown"
	}
}

// ParseRemainderPolicy parses "drop" or "include".
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch s {
	case "drop", "":
		return DropRemainder, nil
	case "include":
		return IncludeRemainder, nil
	default:
		return DropRemainder, &InvalidPolicyError{Value: s}
	}
}

// TimeRange is a caller-supplied [Start, End] interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange validates that start is before end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	r := TimeRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// Validate returns an *InvalidRangeError unless Start < End.
func (r TimeRange) Validate() error {
	if !naive(r.End).After(naive(r.Start)) {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Duration returns End - Start on the wall clock.
func (r TimeRange) Duration() time.Duration {
	return naive(r.End).Sub(naive(r.Start))
}

// Window is one sub-interval of a TimeRange. Boundaries are naive wall-clock
// values carried in UTC; a location is only applied at epoch conversion.
type Window struct {
	Start time.Time
	End   time.Time
}

// Width returns End - Start.
func (w Window) Width() time.Duration {
	return w.End.Sub(w.Start)
}

// Partition splits r into consecutive, non-overlapping windows of WindowSize
// starting at r.Start. The tail shorter than WindowSize is handled per policy.
func Partition(r TimeRange, policy RemainderPolicy) ([]Window, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	start := naive(r.Start)
	end := naive(r.End)
	total := end.Sub(start)
	whole := int(total / WindowSize)

	windows := make([]Window, 0, whole+1)
	lower := start
	for i := 0; i < whole; i++ {
		upper := lower.Add(WindowSize)
		windows = append(windows, Window{Start: lower, End: upper})
		lower = upper
	}

	if policy == IncludeRemainder && lower.Before(end) {
		windows = append(windows, Window{Start: lower, End: end})
	}

	return windows, nil
}

// naive drops the location of t and keeps its wall clock, expressed in UTC.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
