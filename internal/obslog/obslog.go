// Package obslog constructs the structured logger shared by the CLI and
// driver, grounded on how sql/export.Exporter consumes a
// *logiface.Logger[logiface.Event] in the original reference stack, with
// github.com/joeycumines/izerolog supplying the zerolog backend.
package obslog

import (
	"io"
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the concrete event type used throughout this module.
type Logger = logiface.Logger[logiface.Event]

// New builds a logger writing newline-delimited JSON to w, at the given
// level. A nil w defaults to os.Stderr, keeping the live output grid (which
// writes to stdout) uncluttered by log lines.
func New(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	z := izerolog.L.WithZerolog(zerolog.New(w).With().Timestamp().Logger())
	return izerolog.L.New(z, izerolog.L.WithLevel(level)).Logger()
}

// Nop returns a logger with every level disabled, for callers (mainly tests)
// that don't want log output.
func Nop() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}
