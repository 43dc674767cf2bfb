// Package usageerr defines the top-level error taxonomy returned by
// internal/manager and internal/cli and mapped to exit codes by cmd/aochand
// (C9's command-line layer), grounded on
// crates/aoc/src/cli/error.rs of the original implementation.
package usageerr

import (
	"errors"
	"fmt"

	"github.com/ictrobot/aochand/internal/puzzleid"
)

// ExitCode is the process exit code used for every UsageError, matching
// UsageError::exit_code.
const ExitCode = 2

// UsageError reports a problem with how the command was invoked, as opposed
// to a test failure.
type UsageError struct {
	Kind  UsageErrorKind
	Cause error
	Day   puzzleid.ID
}

// UsageErrorKind distinguishes the ways an invocation can be malformed.
type UsageErrorKind int

const (
	InvalidArguments UsageErrorKind = iota
	MissingArguments
	TooManyArguments
	UnsupportedPuzzle
	NoSupportedPuzzles
)

func (e *UsageError) Error() string {
	switch e.Kind {
	case InvalidArguments:
		return fmt.Sprintf("invalid arguments: %s", e.Cause)
	case MissingArguments:
		return fmt.Sprintf("missing required arguments: %s", e.Cause)
	case TooManyArguments:
		return "too many arguments"
	case UnsupportedPuzzle:
		return fmt.Sprintf("unsupported puzzle: %d day %d", e.Day.Year, e.Day.Day)
	case NoSupportedPuzzles:
		return "no matching supported puzzles"
	default:
		return "usage error"
	}
}

func (e *UsageError) Unwrap() error {
	return e.Cause
}

// ErrFailedSilent is returned by internal/manager when the test run itself
// failed: the failure detail has already been printed as part of the
// summary, so the caller must exit non-zero without printing this error's
// text again.
var ErrFailedSilent = errors.New("failed")
