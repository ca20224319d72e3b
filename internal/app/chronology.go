package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

// Chronology turns an ordered boundary stream into FLIGHT and DOWNTIME
// events. It is lazy and single-pass: each call to Next consumes boundaries
// until one event is available.
type Chronology struct {
	src ports.BoundaryIterator

	// open maps each currently alive flight to its start.
	open       map[int64]float64
	lastUptime float64
	serial     int64

	cur  domain.Event
	err  error
	done bool
}

// NewChronology creates a chronology over src. The chronology owns src and
// closes it in Close.
func NewChronology(src ports.BoundaryIterator) *Chronology {
	return &Chronology{
		src:        src,
		open:       make(map[int64]float64),
		lastUptime: domain.MinusInf,
		serial:     1,
	}
}

// Next advances to the next event. It returns false when the boundaries are
// exhausted or an error occurred; check Err afterwards.
func (c *Chronology) Next() bool {
	if c.done {
		return false
	}

	for c.src.Next() {
		b := c.src.Boundary()

		switch b.Kind {
		case domain.BoundaryOpen:
			gap := len(c.open) == 0 && b.TS > c.lastUptime
			c.open[b.FlightID] = b.TS
			if gap {
				c.cur = domain.Downtime(c.serial, c.lastUptime, b.TS)
				c.serial++
				return true
			}

		case domain.BoundaryClose:
			start, ok := c.open[b.FlightID]
			if !ok {
				return c.fail(fmt.Errorf("%w: flight %d at %g", domain.ErrUnmatchedClose, b.FlightID, b.TS))
			}
			delete(c.open, b.FlightID)
			c.lastUptime = b.TS
			c.cur = domain.Flight(b.FlightID, start, b.TS)
			return true

		default:
			return c.fail(fmt.Errorf("%w: flight %d has boundary kind %d", domain.ErrStoreRead, b.FlightID, b.Kind))
		}
	}

	if err := c.src.Err(); err != nil {
		return c.fail(fmt.Errorf("%w: %w", domain.ErrStoreRead, err))
	}
	c.done = true
	return false
}

func (c *Chronology) fail(err error) bool {
	c.err = err
	c.done = true
	return false
}

// Event returns the current event.
func (c *Chronology) Event() domain.Event {
	return c.cur
}

// Err returns the error that stopped the chronology, if any.
func (c *Chronology) Err() error {
	return c.err
}

// Close releases the underlying boundary stream.
func (c *Chronology) Close() error {
	c.done = true
	return c.src.Close()
}

// Collect drains the chronology. On error no events are returned, so a
// caller never sees a partial report.
func (c *Chronology) Collect(ctx context.Context) ([]domain.Event, error) {
	defer c.Close()

	var events []domain.Event
	for c.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events = append(events, c.Event())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Reconstruct builds the chronology of an in-memory record set.
func Reconstruct(records []domain.FlightRecord, tb domain.TieBreak) ([]domain.Event, error) {
	src := ports.NewSliceBoundaries(domain.SortBoundaries(records, tb))
	return NewChronology(src).Collect(context.Background())
}

// ReconstructStore builds the chronology from every record in store, read
// from one snapshot.
func ReconstructStore(ctx context.Context, store ports.FlightStore, tb domain.TieBreak) ([]domain.Event, error) {
	src, err := store.Boundaries(ctx, tb)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return NewChronology(src).Collect(ctx)
}
