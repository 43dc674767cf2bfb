// Package testerr implements the per-case error taxonomy used by
// internal/puzzle when classifying a finished solver process. It is grounded
// on crates/aoc/src/cli/mode/test/error.rs of the original implementation:
// every variant and the is-unsupported-puzzle predicate are carried forward
// unchanged in meaning.
package testerr

import "fmt"

// TestError is the sum type of ways a single test case can fail. Exactly one
// concrete type below satisfies it for any given outcome; nil means success.
type TestError interface {
	error
	// IsUnsupportedPuzzle reports whether this outcome should be treated as
	// "the puzzle declined to run this case" rather than a real failure.
	IsUnsupportedPuzzle() bool
}

// SolverError means the child exited non-zero, or exited zero but wrote to
// stderr.
type SolverError struct {
	ExitCode int
	Stderr   string
	Stdout   string
}

func (e *SolverError) IsUnsupportedPuzzle() bool {
	return e.ExitCode == 2
}

func (e *SolverError) Error() string {
	switch {
	case e.IsUnsupportedPuzzle() && e.Stderr != "":
		return fmt.Sprintf("unsupported puzzle (exit code 2): %q", e.Stderr)
	case e.IsUnsupportedPuzzle():
		return "unsupported puzzle (exit code 2)"
	case e.Stderr != "":
		return fmt.Sprintf("exit status %d: %q", e.ExitCode, e.Stderr)
	case e.Stdout != "":
		return fmt.Sprintf("exit status %d: %q", e.ExitCode, e.Stdout)
	default:
		return fmt.Sprintf("exit status %d", e.ExitCode)
	}
}

// InvalidOutput means stdout did not contain exactly two lines.
type InvalidOutput struct{}

func (*InvalidOutput) IsUnsupportedPuzzle() bool { return true }

func (*InvalidOutput) Error() string {
	return "unsupported puzzle (output didn't match the expected format)"
}

// Mismatch describes a single incorrect part answer.
type Mismatch struct {
	Got      string
	Expected string
}

// IncorrectAnswer means the solver ran cleanly but produced the wrong
// answer(s). Either field may be nil if that part matched.
type IncorrectAnswer struct {
	Part1 *Mismatch
	Part2 *Mismatch
}

func (*IncorrectAnswer) IsUnsupportedPuzzle() bool { return false }

func (e *IncorrectAnswer) Error() string {
	var out string
	if e.Part1 != nil {
		out += fmt.Sprintf("part 1 incorrect, got %q, expected %q", e.Part1.Got, e.Part1.Expected)
	}
	if e.Part2 != nil {
		if e.Part1 != nil {
			out += ". "
		}
		out += fmt.Sprintf("part 2 incorrect, got %q, expected %q", e.Part2.Got, e.Part2.Expected)
	}
	return out
}

// Killed means the deadline was exceeded and the child was force-terminated.
type Killed struct{}

func (*Killed) IsUnsupportedPuzzle() bool { return false }

func (*Killed) Error() string { return "solver exceeded timeout" }

var (
	_ TestError = (*SolverError)(nil)
	_ TestError = (*InvalidOutput)(nil)
	_ TestError = (*IncorrectAnswer)(nil)
	_ TestError = (*Killed)(nil)
)
