package ports

import (
	"context"

	"github.com/bft-labs/flightrec/internal/domain"
)

// FlightStore persists flight records. Every method call is a single
// atomic statement against the underlying store.
type FlightStore interface {
	// Create inserts a new session record and returns its store-assigned id.
	Create(ctx context.Context, duration, lastTS float64) (int64, error)

	// Update sets duration and last_ts of the given session atomically.
	Update(ctx context.Context, id int64, duration, lastTS float64) error

	// Get returns the committed state of one session.
	Get(ctx context.Context, id int64) (domain.FlightRecord, error)

	// Boundaries returns the open and close boundaries of every record,
	// ordered by timestamp and tie-break, read from one consistent snapshot.
	Boundaries(ctx context.Context, tb domain.TieBreak) (BoundaryIterator, error)

	// Close releases the underlying connection.
	Close() error
}

// BoundaryIterator is a finite, non-restartable stream of boundaries.
// Consuming it exhausts it; a fresh query yields a fresh iterator.
type BoundaryIterator interface {
	// Next advances to the next boundary. It returns false when the stream
	// is exhausted or an error occurred.
	Next() bool

	// Boundary returns the current boundary.
	Boundary() domain.Boundary

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases resources held by the iterator.
	Close() error
}

// SliceBoundaries is a BoundaryIterator over an in-memory slice.
type SliceBoundaries struct {
	items []domain.Boundary
	pos   int
}

// NewSliceBoundaries returns an iterator over items, which must already be ordered.
func NewSliceBoundaries(items []domain.Boundary) *SliceBoundaries {
	return &SliceBoundaries{items: items, pos: -1}
}

// Next advances the iterator.
func (s *SliceBoundaries) Next() bool {
	if s.pos+1 >= len(s.items) {
		s.pos = len(s.items)
		return false
	}
	s.pos++
	return true
}

// Boundary returns the current boundary.
func (s *SliceBoundaries) Boundary() domain.Boundary {
	return s.items[s.pos]
}

// Err always returns nil.
func (s *SliceBoundaries) Err() error { return nil }

// Close is a no-op.
func (s *SliceBoundaries) Close() error { return nil }

var _ BoundaryIterator = (*SliceBoundaries)(nil)
