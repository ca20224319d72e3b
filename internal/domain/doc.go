// Package domain contains the core domain entities and value objects for flightrec.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (SQL, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [FlightRecord]: One recording session as persisted by the recorder
//   - [Boundary]: An open or close instant derived from a FlightRecord
//   - [Event]: A reconstructed FLIGHT or DOWNTIME interval
//
// # Time Representation
//
// Timestamps and durations are float64 seconds, matching the persisted
// schema. The first DOWNTIME of a chronology starts at negative infinity
// ([MinusInf]), which has no time.Time equivalent.
package domain
