package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlightRecord_StartTS(t *testing.T) {
	r := FlightRecord{ID: 1, Duration: 5, LastTS: 105}
	require.Equal(t, 100.0, r.StartTS())
	require.True(t, r.Valid())

	require.False(t, FlightRecord{Duration: -1, LastTS: 10}.Valid())
	require.False(t, FlightRecord{Duration: 1, LastTS: math.NaN()}.Valid())
}

func TestSortBoundaries_OrdersByTimestamp(t *testing.T) {
	records := []FlightRecord{
		{ID: 1, Duration: 10, LastTS: 110},
		{ID: 2, Duration: 5, LastTS: 108},
	}

	got := SortBoundaries(records, ClosesFirst)

	want := []Boundary{
		{FlightID: 1, Kind: BoundaryOpen, TS: 100, StartTS: 100},
		{FlightID: 2, Kind: BoundaryOpen, TS: 103, StartTS: 103},
		{FlightID: 2, Kind: BoundaryClose, TS: 108, StartTS: 103},
		{FlightID: 1, Kind: BoundaryClose, TS: 110, StartTS: 100},
	}
	require.Equal(t, want, got)
}

func TestSortBoundaries_TieBreak(t *testing.T) {
	// flight 1 ends exactly when flight 2 begins
	records := []FlightRecord{
		{ID: 2, Duration: 5, LastTS: 110},
		{ID: 1, Duration: 5, LastTS: 105},
	}

	t.Run("closes first", func(t *testing.T) {
		got := SortBoundaries(records, ClosesFirst)
		require.Equal(t, BoundaryClose, got[1].Kind)
		require.Equal(t, int64(1), got[1].FlightID)
		require.Equal(t, BoundaryOpen, got[2].Kind)
		require.Equal(t, int64(2), got[2].FlightID)
	})

	t.Run("opens first", func(t *testing.T) {
		got := SortBoundaries(records, OpensFirst)
		require.Equal(t, BoundaryOpen, got[1].Kind)
		require.Equal(t, int64(2), got[1].FlightID)
		require.Equal(t, BoundaryClose, got[2].Kind)
		require.Equal(t, int64(1), got[2].FlightID)
	})
}

func TestSortBoundaries_ZeroDurationOpensBeforeOwnClose(t *testing.T) {
	records := []FlightRecord{
		{ID: 1, Duration: 0, LastTS: 100},
		{ID: 2, Duration: 10, LastTS: 100},
	}

	got := SortBoundaries(records, ClosesFirst)

	kinds := make([]string, 0, len(got))
	for _, b := range got {
		kinds = append(kinds, b.Kind.String())
	}
	// 2 opens at 90; at 100: close 2, open 1, close 1
	require.Equal(t, []string{"open", "close", "open", "close"}, kinds)
	require.Equal(t, []int64{2, 2, 1, 1}, []int64{got[0].FlightID, got[1].FlightID, got[2].FlightID, got[3].FlightID})
}

func TestParseTieBreak(t *testing.T) {
	tests := []struct {
		in      string
		want    TieBreak
		wantErr bool
	}{
		{"", ClosesFirst, false},
		{"closes-first", ClosesFirst, false},
		{"opens-first", OpensFirst, false},
		{"sideways", ClosesFirst, true},
	}

	for _, tt := range tests {
		got, err := ParseTieBreak(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrInvalidConfig)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
		require.Equal(t, got, must(ParseTieBreak(got.String())))
	}
}

func TestSecondsRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 250_000_000)
	ts := Seconds(now)
	require.InDelta(t, 1700000000.25, ts, 1e-6)
	require.WithinDuration(t, now, Time(ts), time.Microsecond)
	require.True(t, Time(MinusInf).IsZero())
}

func TestEvent_OpenEnded(t *testing.T) {
	e := Downtime(1, MinusInf, 100)
	require.True(t, e.OpenEnded())
	require.True(t, math.IsInf(e.Duration(), 1))
	require.Equal(t, "DOWNTIME(1, -Inf, 100)", e.String())

	f := Flight(3, 100, 105)
	require.False(t, f.OpenEnded())
	require.Equal(t, 5.0, f.Duration())
}

func TestEvent_StringHasNoExponent(t *testing.T) {
	e := Flight(1, 1792200000, 1792200245.9180484)
	require.Equal(t, "FLIGHT(1, 1792200000, 1792200245.9180484)", e.String())
	require.Equal(t, "+Inf", FormatSeconds(math.Inf(1)))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
