// Package synclog implements the push logging sink required of the sync
// engine: every message carries an ISO-8601 timestamp prefix and, while a
// run is active, a progress prefix. The sink is safe for concurrent use by
// many table jobs at once.
package synclog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Sink is a push-only logging function, as required by the external
// interface: it accepts a fully-formed message string.
type Sink func(msg string)

// ProgressPrefixer returns the current "[pct% - completed/total]" prefix,
// or "" when no run is active. The orchestrator supplies this so the sink
// can prefix messages without reaching back into orchestrator internals.
type ProgressPrefixer func() string

// Logger wraps a zerolog.Logger into a Sink, adding the ISO-8601 timestamp
// and progress prefix every message carries.
type Logger struct {
	mu sync.Mutex // guards prefixFn only; zerolog itself is already safe for concurrent writers
	l  zerolog.Logger

	prefixFn ProgressPrefixer
}

// New builds a Logger writing to out. When out is an *os.File attached to
// a terminal, it uses zerolog's human-readable ConsoleWriter; otherwise it
// emits one JSON object per line, for interactive and piped/file output
// respectively.
func New(out *os.File, level string) *Logger {
	var w io.Writer = out
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zl = zl.Level(lvl)
	}
	return &Logger{l: zl}
}

// SetProgressPrefixer attaches a callback used to prefix every message
// with the active run's "[pct% - completed/total]" marker.
func (lg *Logger) SetProgressPrefixer(fn ProgressPrefixer) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.prefixFn = fn
}

func (lg *Logger) prefix() string {
	lg.mu.Lock()
	fn := lg.prefixFn
	lg.mu.Unlock()
	if fn == nil {
		return ""
	}
	return fn()
}

// Sink returns the push-sink function required by the external interface.
func (lg *Logger) Sink() Sink {
	return func(msg string) {
		if p := lg.prefix(); p != "" {
			lg.l.Info().Msg(fmt.Sprintf("%s %s", p, msg))
			return
		}
		lg.l.Info().Msg(msg)
	}
}

// Warn logs msg at warning level through the same prefixing rule.
func (lg *Logger) Warn(msg string) {
	if p := lg.prefix(); p != "" {
		lg.l.Warn().Msg(fmt.Sprintf("%s %s", p, msg))
		return
	}
	lg.l.Warn().Msg(msg)
}

// Error logs msg at error level through the same prefixing rule.
func (lg *Logger) Error(msg string) {
	if p := lg.prefix(); p != "" {
		lg.l.Error().Msg(fmt.Sprintf("%s %s", p, msg))
		return
	}
	lg.l.Error().Msg(msg)
}

// Zerolog exposes the underlying zerolog.Logger for components that prefer
// structured fields over the plain-string Sink contract.
func (lg *Logger) Zerolog() zerolog.Logger {
	return lg.l
}
