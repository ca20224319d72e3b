// Package flightrec provides an embeddable flight recorder and the report
// that reconstructs host uptime and downtime from its records.
//
// A flight is one run of a process. While a [Recorder] is running it keeps a
// single record current: how long the process has been alive, measured on the
// monotonic clock, and the wall-clock time of the last heartbeat. After a
// crash the record still holds the last committed heartbeat, so the end of the
// flight is known to within one interval.
//
// # Basic Usage
//
//	rec, err := flightrec.New(flightrec.Config{
//	    Database: "/var/lib/flight-recorder/flight-recorder.db",
//	    Interval: 10 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := rec.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Reports
//
// [Reconstruct] reads every record of a store and returns FLIGHT and
// DOWNTIME events in chronological order:
//
//	events, err := flightrec.Reconstruct(ctx, path, flightrec.ClosesFirst)
//
// # Stores
//
// A filesystem path selects SQLite. A postgres:// or postgresql:// URL
// selects PostgreSQL, which lets several hosts share one store.
//
// # Lifecycle States
//
// A Recorder can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Recorder.Status]
// to query the current state.
package flightrec
