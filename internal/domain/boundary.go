package domain

import (
	"fmt"
	"sort"
)

// BoundaryKind distinguishes the two instants derived from a FlightRecord.
type BoundaryKind int

const (
	// BoundaryOpen is emitted at a session's start.
	BoundaryOpen BoundaryKind = iota
	// BoundaryClose is emitted at a session's last committed update.
	BoundaryClose
)

// String returns a human-readable representation of the kind.
func (k BoundaryKind) String() string {
	switch k {
	case BoundaryOpen:
		return "open"
	case BoundaryClose:
		return "close"
	default:
		return "unknown"
	}
}

// Boundary is an open or close instant of a session.
type Boundary struct {
	FlightID int64
	Kind     BoundaryKind
	TS       float64

	// StartTS is the start of the session the boundary belongs to.
	// For open boundaries it equals TS.
	StartTS float64
}

// TieBreak selects how boundaries sharing a timestamp are ordered.
type TieBreak int

const (
	// ClosesFirst processes closes of other sessions before opens.
	// A session's own close never precedes its own open.
	ClosesFirst TieBreak = iota
	// OpensFirst processes opens before closes.
	OpensFirst
)

// String returns the flag spelling of the tie-break.
func (t TieBreak) String() string {
	switch t {
	case ClosesFirst:
		return "closes-first"
	case OpensFirst:
		return "opens-first"
	default:
		return "unknown"
	}
}

// ParseTieBreak parses the flag spelling of a tie-break.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "closes-first":
		return ClosesFirst, nil
	case "opens-first":
		return OpensFirst, nil
	default:
		return ClosesFirst, fmt.Errorf("%w: unknown tie-break %q", ErrInvalidConfig, s)
	}
}

// Rank orders boundaries that share a timestamp; lower ranks come first.
// Stores that sort in SQL must reproduce the same ranks.
func (t TieBreak) Rank(b Boundary) int {
	if t == OpensFirst {
		if b.Kind == BoundaryOpen {
			return 0
		}
		return 1
	}
	switch {
	case b.Kind == BoundaryOpen:
		return 1
	case b.StartTS >= b.TS:
		// zero-length session: its close follows its own open
		return 2
	default:
		return 0
	}
}

// Boundaries derives the open and close boundaries of a record.
func (r FlightRecord) Boundaries() (open, close Boundary) {
	start := r.StartTS()
	open = Boundary{FlightID: r.ID, Kind: BoundaryOpen, TS: start, StartTS: start}
	close = Boundary{FlightID: r.ID, Kind: BoundaryClose, TS: r.LastTS, StartTS: start}
	return open, close
}

// SortBoundaries derives all boundaries of records and orders them by
// timestamp, tie-break rank and flight id.
func SortBoundaries(records []FlightRecord, tb TieBreak) []Boundary {
	out := make([]Boundary, 0, 2*len(records))
	for _, r := range records {
		open, close := r.Boundaries()
		out = append(out, open, close)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TS != b.TS {
			return a.TS < b.TS
		}
		if ra, rb := tb.Rank(a), tb.Rank(b); ra != rb {
			return ra < rb
		}
		return a.FlightID < b.FlightID
	})
	return out
}
