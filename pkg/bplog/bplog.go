// Package bplog writes the append-only request log. Logging is best
// effort: a write failure never fails the API call that produced it.
package bplog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFile is the log file used when none is configured
const DefaultFile = "bplog.txt"

// Open appends to path, creating it if needed. The returned closer must be
// closed by the caller.
func Open(path string) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		path = DefaultFile
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return New(f), f, nil
}

// New returns a timestamped logger writing to w
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(bestEffort{w}).With().
		Timestamp().
		Str("component", "bitpay").
		Logger()
}

// Console returns a human readable logger for the CLI
func Console(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// bestEffort reports every write as successful
type bestEffort struct {
	w io.Writer
}

func (b bestEffort) Write(p []byte) (int, error) {
	_, _ = b.w.Write(p)
	return len(p), nil
}
