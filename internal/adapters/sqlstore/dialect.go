package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bft-labs/flightrec/internal/domain"
)

// Dialect captures the SQL differences between supported backends.
type Dialect struct {
	// Name is the database/sql driver name.
	Name string

	// Init holds the statements that prepare a fresh connection and schema.
	Init []string

	// positional reports whether placeholders are numbered ($1) instead of ?.
	positional bool
}

// SQLite is the default, file-backed dialect.
var SQLite = Dialect{
	Name: "sqlite3",
	Init: []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		`CREATE TABLE IF NOT EXISTS flight (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			duration REAL NOT NULL CHECK (duration >= 0),
			last_ts REAL NOT NULL)`,
		"CREATE INDEX IF NOT EXISTS idx_flight_last_ts ON flight (last_ts)",
		"CREATE INDEX IF NOT EXISTS idx_flight_start_ts ON flight (last_ts - duration)",
	},
}

// Postgres is the dialect for stores shared by several hosts.
var Postgres = Dialect{
	Name: "postgres",
	Init: []string{
		`CREATE TABLE IF NOT EXISTS flight (
			id BIGSERIAL PRIMARY KEY,
			duration DOUBLE PRECISION NOT NULL CHECK (duration >= 0),
			last_ts DOUBLE PRECISION NOT NULL)`,
		"CREATE INDEX IF NOT EXISTS idx_flight_last_ts ON flight (last_ts)",
		"CREATE INDEX IF NOT EXISTS idx_flight_start_ts ON flight ((last_ts - duration))",
	},
	positional: true,
}

// rebind rewrites ? placeholders for dialects with numbered placeholders.
func (d Dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// boundariesQuery derives open and close boundaries of every record and
// orders them the way domain.SortBoundaries does.
func boundariesQuery(tb domain.TieBreak) string {
	openRank, closeRank := "1", "CASE WHEN last_ts - duration >= last_ts THEN 2 ELSE 0 END"
	if tb == domain.OpensFirst {
		openRank, closeRank = "0", "1"
	}
	return fmt.Sprintf(`
SELECT id, %d AS kind, last_ts - duration AS ts, last_ts - duration AS start_ts, %s AS rnk
FROM flight
UNION ALL
SELECT id, %d, last_ts, last_ts - duration, %s
FROM flight
ORDER BY ts, rnk, id`,
		domain.BoundaryOpen, openRank, domain.BoundaryClose, closeRank)
}
