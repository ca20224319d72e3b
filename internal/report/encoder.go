// Package report renders reconstructed flight chronologies.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/bft-labs/flightrec/internal/domain"
)

// Encoder writes events and report headers to an output stream.
type Encoder interface {
	// Header introduces one report of n events generated at t.
	Header(w io.Writer, t time.Time, n int) error
	Encode(w io.Writer, e domain.Event) error
}

// NewEncoder returns the encoder for format ("json" or "text").
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case "json":
		return JSONEncoder{}, nil
	case "text":
		return TextEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrInvalidConfig, format)
	}
}

// Write encodes every event in order.
func Write(w io.Writer, enc Encoder, events []domain.Event) error {
	for _, e := range events {
		if err := enc.Encode(w, e); err != nil {
			return err
		}
	}
	return nil
}

// JSONEncoder writes one JSON object per line. An unbounded start is
// written as null, as is the duration of such an event.
type JSONEncoder struct{}

type eventLine struct {
	Kind     string   `json:"kind"`
	ID       *int64   `json:"id,omitempty"`
	Serial   *int64   `json:"serial,omitempty"`
	StartTS  *float64 `json:"start_ts"`
	EndTS    float64  `json:"end_ts"`
	Duration *float64 `json:"duration"`
}

type headerLine struct {
	Kind        string  `json:"kind"`
	GeneratedAt float64 `json:"generated_at"`
	Events      int     `json:"events"`
}

// Encode writes e as a JSON line.
func (JSONEncoder) Encode(w io.Writer, e domain.Event) error {
	id := e.ID
	line := eventLine{Kind: e.Kind.String(), EndTS: e.EndTS}
	if e.Kind == domain.EventDowntime {
		line.Serial = &id
	} else {
		line.ID = &id
	}
	if !math.IsInf(e.StartTS, -1) {
		start, d := e.StartTS, e.Duration()
		line.StartTS = &start
		line.Duration = &d
	}
	return json.NewEncoder(w).Encode(line)
}

// Header writes the REPORT line used in follow mode.
func (JSONEncoder) Header(w io.Writer, t time.Time, n int) error {
	return json.NewEncoder(w).Encode(headerLine{Kind: "REPORT", GeneratedAt: domain.Seconds(t), Events: n})
}

// TextEncoder writes one human-readable event per line.
type TextEncoder struct{}

// Encode writes e as KIND(id, start, end) followed by its start and end in
// RFC 3339 and its length. The start and length of an open-ended downtime
// are written as "-".
func (TextEncoder) Encode(w io.Writer, e domain.Event) error {
	start, length := "-", "-"
	if !e.OpenEnded() {
		start = stamp(e.StartTS)
		length = time.Duration(e.Duration() * float64(time.Second)).Round(time.Millisecond).String()
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e, start, stamp(e.EndTS), length)
	return err
}

func stamp(ts float64) string {
	return domain.Time(ts).UTC().Format(time.RFC3339)
}

// Header writes a comment line with the report time and size.
func (TextEncoder) Header(w io.Writer, t time.Time, n int) error {
	_, err := fmt.Fprintf(w, "# report %s, %d events\n", t.UTC().Format(time.RFC3339), n)
	return err
}
