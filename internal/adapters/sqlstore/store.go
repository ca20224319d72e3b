package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

// ErrNotFound is returned when a flight id does not exist.
var ErrNotFound = errors.New("flight not found")

// Options control how a store is opened.
type Options struct {
	// ReadOnly opens the store without creating files or schema.
	ReadOnly bool
}

// Store is a FlightStore backed by database/sql.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	location string
}

// IsPostgres reports whether location is a PostgreSQL connection URL.
func IsPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

// Open connects to the store at location and prepares its schema.
// All failures wrap domain.ErrStoreOpen.
func Open(ctx context.Context, location string, opts Options) (*Store, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", domain.ErrStoreOpen)
	}

	dialect, dsn := SQLite, location
	if IsPostgres(location) {
		dialect = Postgres
	} else {
		var err error
		if dsn, err = sqliteDSN(location, opts); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreOpen, err)
		}
	}

	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreOpen, err)
	}
	if dialect.Name == SQLite.Name {
		// pragmas are per connection
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreOpen, err)
	}

	s := &Store{db: db, dialect: dialect, location: location}
	if err := s.init(ctx, opts); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreOpen, err)
	}
	return s, nil
}

func sqliteDSN(path string, opts Options) (string, error) {
	if opts.ReadOnly {
		return "file:" + path + "?mode=ro", nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create database directory: %w", err)
		}
	}
	return path, nil
}

func (s *Store) init(ctx context.Context, opts Options) error {
	if opts.ReadOnly {
		if s.dialect.Name == SQLite.Name {
			_, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout=5000")
			return err
		}
		return nil
	}
	for _, q := range s.dialect.Init {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Create inserts a new flight record and returns its id.
func (s *Store) Create(ctx context.Context, duration, lastTS float64) (int64, error) {
	var id int64
	q := s.dialect.rebind("INSERT INTO flight (duration, last_ts) VALUES (?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, q, duration, lastTS).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert flight: %w", err)
	}
	return id, nil
}

// Update sets duration and last_ts of one flight in a single statement.
func (s *Store) Update(ctx context.Context, id int64, duration, lastTS float64) error {
	q := s.dialect.rebind("UPDATE flight SET duration = ?, last_ts = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, q, duration, lastTS, id)
	if err != nil {
		return fmt.Errorf("update flight %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update flight %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update flight %d: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns the committed state of one flight.
func (s *Store) Get(ctx context.Context, id int64) (domain.FlightRecord, error) {
	rec := domain.FlightRecord{ID: id}
	q := s.dialect.rebind("SELECT duration, last_ts FROM flight WHERE id = ?")
	err := s.db.QueryRowContext(ctx, q, id).Scan(&rec.Duration, &rec.LastTS)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FlightRecord{}, fmt.Errorf("get flight %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.FlightRecord{}, fmt.Errorf("get flight %d: %w", id, err)
	}
	return rec, nil
}

// Boundaries streams the ordered open and close boundaries of all flights.
func (s *Store) Boundaries(ctx context.Context, tb domain.TieBreak) (ports.BoundaryIterator, error) {
	rows, err := s.db.QueryContext(ctx, boundariesQuery(tb))
	if err != nil {
		return nil, fmt.Errorf("query boundaries: %w", err)
	}
	return &rowsIterator{rows: rows}, nil
}

// Location returns the path or URL the store was opened with.
func (s *Store) Location() string {
	return s.location
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rowsIterator adapts *sql.Rows to ports.BoundaryIterator.
type rowsIterator struct {
	rows *sql.Rows
	cur  domain.Boundary
	err  error
}

func (it *rowsIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	var kind, rank int
	b := domain.Boundary{}
	if err := it.rows.Scan(&b.FlightID, &kind, &b.TS, &b.StartTS, &rank); err != nil {
		it.err = fmt.Errorf("scan boundary: %w", err)
		return false
	}
	b.Kind = domain.BoundaryKind(kind)

	// a close row carries the whole record; an open row spans zero seconds
	rec := domain.FlightRecord{ID: b.FlightID, Duration: b.TS - b.StartTS, LastTS: b.TS}
	if !rec.Valid() {
		it.err = fmt.Errorf("%w: flight %d: invalid record (duration %v, last_ts %v)",
			domain.ErrStoreRead, b.FlightID, rec.Duration, rec.LastTS)
		return false
	}
	it.cur = b
	return true
}

func (it *rowsIterator) Boundary() domain.Boundary { return it.cur }

func (it *rowsIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *rowsIterator) Close() error { return it.rows.Close() }

var _ ports.FlightStore = (*Store)(nil)
