// Package sqlstore implements ports.FlightStore on database/sql.
//
// A filesystem path selects SQLite (github.com/mattn/go-sqlite3) in WAL mode,
// which lets several recorders and a concurrent report share one file. A
// postgres:// or postgresql:// URL selects PostgreSQL (github.com/lib/pq).
//
// Every write is a single statement, so a record's duration and last_ts are
// never observed half-written. Boundaries are derived and ordered by one
// SELECT, which reads from a single snapshot.
package sqlstore
