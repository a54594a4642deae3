package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToEpochWindow(t *testing.T) {
	w := Window{Start: date(2017, 1, 1), End: date(2017, 4, 1)}

	tests := []struct {
		name     string
		loc      *time.Location
		wantFrom int64
		wantTo   int64
	}{
		{name: "nil location is UTC", loc: nil, wantFrom: 1483228800, wantTo: 1491004800},
		{name: "UTC", loc: time.UTC, wantFrom: 1483228800, wantTo: 1491004800},
		{name: "UTC+1 wall clock", loc: time.FixedZone("CET", 3600), wantFrom: 1483225200, wantTo: 1491001200},
		{name: "UTC-5 wall clock", loc: time.FixedZone("EST", -5*3600), wantFrom: 1483246800, wantTo: 1491022800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToEpochWindow(w, tt.loc)
			assert.Equal(t, tt.wantFrom, got.From)
			assert.Equal(t, tt.wantTo, got.To)
		})
	}
}

func TestEpochWindow_Params(t *testing.T) {
	e := EpochWindow{From: 1483228860, To: 1491004860}
	assert.Equal(t, "1483228860", e.FromParam())
	assert.Equal(t, "1491004860", e.ToParam())
}

func TestEpochWindow_RoundTrip(t *testing.T) {
	r := TimeRange{
		Start: time.Date(2017, 1, 1, 0, 1, 0, 0, time.UTC),
		End:   time.Date(2022, 8, 30, 0, 1, 0, 0, time.UTC),
	}
	windows, err := Partition(r, IncludeRemainder)
	require.NoError(t, err)

	locations := []*time.Location{
		time.UTC,
		time.FixedZone("CET", 3600),
		time.FixedZone("IST", 5*3600+1800),
		time.FixedZone("PST", -8*3600),
	}

	for _, loc := range locations {
		t.Run(loc.String(), func(t *testing.T) {
			for i, w := range windows {
				back := FromEpochWindow(ToEpochWindow(w, loc), loc)
				assert.Equal(t, w, back, "window %d", i)
			}
		})
	}
}

func TestEpochWindow_RoundTripDSTZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	// Both boundaries exist once in New York, one in winter and one in summer
	w := Window{
		Start: time.Date(2017, 1, 1, 0, 1, 0, 0, time.UTC),
		End:   time.Date(2017, 4, 1, 0, 1, 0, 0, time.UTC),
	}
	e := ToEpochWindow(w, ny)
	assert.Equal(t, int64(1483246860), e.From, "EST is UTC-5")
	assert.Equal(t, int64(1491019260), e.To, "EDT is UTC-4")
	assert.Equal(t, w, FromEpochWindow(e, ny))
}

func TestEpochWindow_DSTGapBoundary(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	// 02:30 on 2017-03-12 does not exist in New York
	gap := time.Date(2017, 3, 12, 2, 30, 0, 0, time.UTC)
	w := Window{Start: gap, End: gap.Add(WindowSize)}

	e := ToEpochWindow(w, ny)
	back := FromEpochWindow(e, ny)

	assert.NotEqual(t, w.Start, back.Start, "gap boundary cannot round trip")
	diff := back.Start.Sub(w.Start)
	assert.True(t, diff == time.Hour || diff == -time.Hour, "shifted by the DST offset, got %v", diff)

	// The end boundary is an ordinary summer time and survives
	assert.Equal(t, w.End, back.End)

	// Converting the read-back window again is stable
	assert.Equal(t, e, ToEpochWindow(back, ny))
}
