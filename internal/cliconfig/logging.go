package cliconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/flightrec/internal/domain"
)

// Verbosity is a logging threshold accepted by --verbosity.
type Verbosity int

const (
	LevelDebug Verbosity = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelCrit
)

var verbosityNames = []string{"debug", "info", "warn", "error", "fatal", "crit"}

func (v Verbosity) String() string {
	if v < 0 || int(v) >= len(verbosityNames) {
		return "unknown"
	}
	return verbosityNames[v]
}

// ZerologLevel maps v to a zerolog level. fatal and crit share FatalLevel,
// the most severe level that is still logged without exiting.
func (v Verbosity) ZerologLevel() zerolog.Level {
	switch v {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// ParseVerbosity parses a verbosity name.
func ParseVerbosity(s string) (Verbosity, error) {
	for i, name := range verbosityNames {
		if s == name {
			return Verbosity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not a valid verbosity (one of %v)", domain.ErrInvalidConfig, s, verbosityNames)
}

// Logger returns the bootstrap logger used before configuration is loaded.
func Logger(stderr io.Writer) zerolog.Logger {
	return ConsoleLogger(stderr, false).Level(zerolog.InfoLevel)
}

// NewLogger builds the root logger for the given verbosity. When logFile is
// set, output is appended to it without colors; otherwise it goes to
// stderr. The returned closer releases the file and is a no-op otherwise.
func NewLogger(verbosity, logFile string, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	v, err := ParseVerbosity(verbosity)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if logFile == "" {
		return ConsoleLogger(stderr, false).Level(v.ZerologLevel()), nopCloser{}, nil
	}

	f, err := os.OpenFile(ExpandHome(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("%w: open log file: %w", domain.ErrInvalidConfig, err)
	}
	return ConsoleLogger(f, true).Level(v.ZerologLevel()), f, nil
}

// ConsoleLogger returns a human-readable logger with RFC 3339 timestamps.
func ConsoleLogger(w io.Writer, noColor bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
