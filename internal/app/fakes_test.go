package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

var errStoreDown = errors.New("store down")

// fakeClock advances both clocks by d whenever After is called, so every
// tick of the loop is exactly one interval long.
type fakeClock struct {
	mu   sync.Mutex
	wall time.Time
	mono time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{wall: time.Unix(1_700_000_000, 0), mono: 42 * time.Hour}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wall
}

func (c *fakeClock) Monotonic() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mono
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mono += d
	c.wall = c.wall.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.wall
	return ch
}

// fakeStore keeps records in memory and can fail selected update calls.
type fakeStore struct {
	mu        sync.Mutex
	records   map[int64]domain.FlightRecord
	nextID    int64
	createErr error
	failFrom  int // updates numbered >= failFrom fail; 0 disables
	updates   int
	onUpdate  func(n int, rec domain.FlightRecord, err error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]domain.FlightRecord)}
}

func (s *fakeStore) Create(_ context.Context, duration, lastTS float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	s.records[s.nextID] = domain.FlightRecord{ID: s.nextID, Duration: duration, LastTS: lastTS}
	return s.nextID, nil
}

func (s *fakeStore) Update(_ context.Context, id int64, duration, lastTS float64) error {
	s.mu.Lock()
	s.updates++
	n := s.updates
	var err error
	if s.failFrom > 0 && n >= s.failFrom {
		err = errStoreDown
	} else {
		s.records[id] = domain.FlightRecord{ID: id, Duration: duration, LastTS: lastTS}
	}
	rec := s.records[id]
	hook := s.onUpdate
	s.mu.Unlock()

	if hook != nil {
		hook(n, rec, err)
	}
	return err
}

func (s *fakeStore) Get(_ context.Context, id int64) (domain.FlightRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.FlightRecord{}, errors.New("not found")
	}
	return rec, nil
}

func (s *fakeStore) Boundaries(_ context.Context, tb domain.TieBreak) (ports.BoundaryIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]domain.FlightRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	return ports.NewSliceBoundaries(domain.SortBoundaries(records, tb)), nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// recordingEmitter captures heartbeat notifications.
type recordingEmitter struct {
	mu     sync.Mutex
	opened []int64
	beats  []float64
	finals int
	errs   int
}

func (e *recordingEmitter) OnSessionOpen(id int64, _ float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, id)
}

func (e *recordingEmitter) OnHeartbeat(_ int64, duration, _ float64, final bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.beats = append(e.beats, duration)
	if final {
		e.finals++
	}
}

func (e *recordingEmitter) OnHeartbeatError(_ int64, _ error, _ bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs++
}

// failingBoundaries yields its items and then fails.
type failingBoundaries struct {
	*ports.SliceBoundaries
	err error
}

func (f failingBoundaries) Err() error { return f.err }
