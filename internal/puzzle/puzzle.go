// Package puzzle implements the per-puzzle test state machine (C6 in
// spec.md), grounded on crates/aoc/src/cli/mode/test/puzzle.rs of the
// original implementation.
package puzzle

import (
	"strings"
	"time"

	"github.com/ictrobot/aochand/internal/procpool"
	"github.com/ictrobot/aochand/internal/testcase"
	"github.com/ictrobot/aochand/internal/testerr"
)

// Status is the lifecycle state of a single (year, day) puzzle.
type Status int

const (
	// StatusInitial means no case has started yet.
	StatusInitial Status = iota
	// StatusRunning means at least one case has started but not every case
	// has finished.
	StatusRunning
	// StatusPassed means every case succeeded.
	StatusPassed
	// StatusFailed means every case failed, and not every failure was an
	// unsupported-puzzle outcome.
	StatusFailed
	// StatusUnsupported means every case failed, and every failure was an
	// unsupported-puzzle outcome (the solver doesn't implement this puzzle).
	StatusUnsupported
	// StatusMixed means some cases succeeded and some failed.
	StatusMixed
	// StatusUnknown means the puzzle had zero test cases.
	StatusUnknown
)

// Symbol returns the single-glyph status indicator used in the output grid.
// Running's space is overwritten by the output grid with a spinner frame.
func (s Status) Symbol() string {
	switch s {
	case StatusInitial, StatusRunning:
		return " "
	case StatusPassed:
		return "\x1b[0;32m✓\x1b[0m"
	case StatusFailed:
		return "\x1b[1;31m✗\x1b[0m"
	case StatusMixed:
		return "\x1b[1;33m~\x1b[0m"
	case StatusUnsupported:
		return "\x1b[0;90m-\x1b[0m"
	case StatusUnknown:
		return "\x1b[1;90m?\x1b[0m"
	default:
		return "?"
	}
}

// IsPending reports whether the puzzle may still produce more events.
func (s Status) IsPending() bool {
	return s == StatusInitial || s == StatusRunning
}

// HasFailures reports whether the puzzle ended Failed or Mixed. A Mixed
// puzzle counts even when every one of its failures is an unsupported-puzzle
// outcome.
func (s Status) HasFailures() bool {
	return s == StatusFailed || s == StatusMixed
}

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusUnsupported:
		return "unsupported"
	case StatusMixed:
		return "mixed"
	case StatusUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Failure pairs a failed case's input path with its classified error.
type Failure struct {
	InputPath string
	Err       testerr.TestError
}

// Puzzle accumulates test case outcomes for a single (year, day). The zero
// value is ready to use.
type Puzzle struct {
	started   bool
	startedAt time.Time
	testCases int
	succeeded int
	failures  []Failure
}

// SetCaseCount records how many cases this puzzle has. It must be called
// exactly once, before any CaseStarted/CaseFinished call. Setting a count of
// zero immediately starts (and thus finishes, as Unknown) the puzzle.
// Reports whether the status changed.
func (p *Puzzle) SetCaseCount(count int) bool {
	if p.testCases != 0 || p.started {
		panic("puzzle: case count already set")
	}
	if count == 0 {
		p.started = true
		p.startedAt = time.Now()
		return true
	}
	p.testCases = count
	return false
}

// CaseStarted marks the puzzle as running if this is its first case to
// start. Reports whether the status changed.
func (p *Puzzle) CaseStarted() bool {
	if p.testCases == 0 {
		panic("puzzle: case count not set")
	}
	if !p.started {
		p.started = true
		p.startedAt = time.Now()
		return true
	}
	return false
}

// CaseFinished classifies one case's process result against its expected
// answers and records the outcome. Reports whether every case for this
// puzzle has now finished. A non-nil error means the process result itself
// is unusable (a stdout/stderr read failure, or a stdin-write error paired
// with a successful exit) and must be treated as fatal by the caller, per
// Puzzle::case_finished's io::Result<bool>.
func (p *Puzzle) CaseFinished(tc testcase.Case, result procpool.Result) (bool, error) {
	testErr, err := classify(tc, result)
	if err != nil {
		return false, err
	}

	if testErr == nil {
		p.succeeded++
	} else {
		p.failures = append(p.failures, Failure{InputPath: tc.InputPath, Err: testErr})
	}

	return p.succeeded+len(p.failures) == p.testCases, nil
}

// classify turns a finished process result plus its expected answers into a
// TestError, or nil on success. The returned error is non-nil only for a
// fatal driver condition (an IO error reading stdout/stderr, or a
// stdin-write error on an otherwise successful exit) and must be propagated
// rather than recorded as a test failure. Grounded on Puzzle::case_finished.
func classify(tc testcase.Case, result procpool.Result) (testerr.TestError, error) {
	if result.Killed {
		return &testerr.Killed{}, nil
	}
	if !result.Success() {
		if result.StderrErr != nil {
			return nil, result.StderrErr
		}
		if result.StdoutErr != nil {
			return nil, result.StdoutErr
		}
		return &testerr.SolverError{ExitCode: result.ExitCode, Stderr: result.Stderr, Stdout: result.Stdout}, nil
	}

	// The process exited zero, so it should have read the entire input; a
	// stdin-write error here means the solver exited early without
	// consuming it, which is a driver-level problem, not a test failure.
	if result.StdinWriteErr != nil {
		return nil, result.StdinWriteErr
	}
	if result.StdoutErr != nil {
		return nil, result.StdoutErr
	}
	if result.StderrErr != nil {
		return nil, result.StderrErr
	}

	if result.Stderr != "" {
		return &testerr.SolverError{ExitCode: result.ExitCode, Stderr: result.Stderr, Stdout: result.Stdout}, nil
	}

	lines := splitLines(result.Stdout)
	if len(lines) != 2 {
		return &testerr.InvalidOutput{}, nil
	}

	var part1, part2 *testerr.Mismatch
	if lines[0] != tc.Part1 {
		part1 = &testerr.Mismatch{Got: lines[0], Expected: tc.Part1}
	}
	if tc.Part2 != nil && lines[1] != *tc.Part2 {
		part2 = &testerr.Mismatch{Got: lines[1], Expected: *tc.Part2}
	}

	if part1 == nil && part2 == nil {
		return nil, nil
	}
	return &testerr.IncorrectAnswer{Part1: part1, Part2: part2}, nil
}

// splitLines mirrors str::lines: split on "\n", dropping a trailing "\r" from
// each line and dropping one trailing empty element caused by a final "\n".
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Status derives the puzzle's current lifecycle state from its recorded
// counts. Grounded on Puzzle::get_status.
func (p *Puzzle) Status() Status {
	if !p.started {
		return StatusInitial
	}
	if p.testCases == 0 {
		return StatusUnknown
	}

	finished := p.succeeded + len(p.failures)
	switch {
	case finished < p.testCases:
		return StatusRunning
	case len(p.failures) == 0:
		return StatusPassed
	case len(p.failures) < p.testCases:
		return StatusMixed
	case allUnsupported(p.failures):
		return StatusUnsupported
	default:
		return StatusFailed
	}
}

func allUnsupported(failures []Failure) bool {
	for _, f := range failures {
		if !f.Err.IsUnsupportedPuzzle() {
			return false
		}
	}
	return true
}

// StartedAt returns when this puzzle first started, and whether it has
// started at all.
func (p *Puzzle) StartedAt() (time.Time, bool) {
	return p.startedAt, p.started
}

// CaseCount returns the number of test cases set via SetCaseCount.
func (p *Puzzle) CaseCount() int { return p.testCases }

// Succeeded returns the number of cases that have passed so far.
func (p *Puzzle) Succeeded() int { return p.succeeded }

// Failures returns every recorded failure so far, in the order finished.
func (p *Puzzle) Failures() []Failure { return p.failures }
