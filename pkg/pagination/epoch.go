package pagination

import (
	"strconv"
	"time"
)

// EpochWindow is a Window with both boundaries in epoch seconds.
type EpochWindow struct {
	From int64
	To   int64
}

// FromParam returns From in the string form used as a query parameter.
func (e EpochWindow) FromParam() string {
	return strconv.FormatInt(e.From, 10)
}

// ToParam returns To in the string form used as a query parameter.
func (e EpochWindow) ToParam() string {
	return strconv.FormatInt(e.To, 10)
}

// ToEpochWindow interprets the wall-clock boundaries of w in loc and converts
// them to epoch seconds. A nil loc means UTC.
func ToEpochWindow(w Window, loc *time.Location) EpochWindow {
	return EpochWindow{
		From: inLocation(w.Start, loc).Unix(),
		To:   inLocation(w.End, loc).Unix(),
	}
}

// FromEpochWindow is the inverse of ToEpochWindow for the same loc, for
// boundaries whose wall-clock time occurs exactly once in loc. That holds for
// every boundary in a fixed-offset zone. In a zone with daylight saving, a
// boundary inside the spring-forward gap or the fall-back overlap maps to one
// instant chosen by the time package, and reading it back yields that
// instant's wall clock, not the original value.
func FromEpochWindow(e EpochWindow, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{
		Start: naive(time.Unix(e.From, 0).In(loc)),
		End:   naive(time.Unix(e.To, 0).In(loc)),
	}
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
