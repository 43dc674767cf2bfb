package puzzle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ictrobot/aochand/internal/procpool"
	"github.com/ictrobot/aochand/internal/testcase"
)

func part2(s string) *string { return &s }

func TestInitialStatus(t *testing.T) {
	var p Puzzle
	assert.Equal(t, StatusInitial, p.Status())
}

func TestZeroCaseCountIsUnknown(t *testing.T) {
	var p Puzzle
	changed := p.SetCaseCount(0)
	assert.True(t, changed)
	assert.Equal(t, StatusUnknown, p.Status())
}

func TestCaseCountPanicsIfSetTwice(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(2)
	assert.Panics(t, func() { p.SetCaseCount(1) })
}

func TestRunningThenPassed(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(2)
	assert.Equal(t, StatusInitial, p.Status())

	changed := p.CaseStarted()
	assert.True(t, changed)
	assert.Equal(t, StatusRunning, p.Status())

	changed = p.CaseStarted()
	assert.False(t, changed)

	tc := testcase.Case{Part1: "A", Part2: part2("B")}
	done, err := p.CaseFinished(tc, procpool.Result{ExitCode: 0, Stdout: "A\nB\n"})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StatusRunning, p.Status())

	done, err = p.CaseFinished(tc, procpool.Result{ExitCode: 0, Stdout: "A\nB\n"})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StatusPassed, p.Status())
	assert.Equal(t, 2, p.Succeeded())
}

func TestIncorrectAnswerIsMixedWithPartialSuccess(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(2)
	p.CaseStarted()

	tc := testcase.Case{Part1: "A", Part2: part2("B")}
	_, err := p.CaseFinished(tc, procpool.Result{ExitCode: 0, Stdout: "A\nB\n"})
	require.NoError(t, err)
	_, err = p.CaseFinished(tc, procpool.Result{ExitCode: 0, Stdout: "wrong\nB\n"})
	require.NoError(t, err)

	assert.Equal(t, StatusMixed, p.Status())
	require.Len(t, p.Failures(), 1)
	assert.Equal(t, "part 1 incorrect, got \"wrong\", expected \"A\"", p.Failures()[0].Err.Error())
}

func TestKilledIsFailedNotUnsupported(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()
	_, err := p.CaseFinished(testcase.Case{}, procpool.Result{Killed: true})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, p.Status())
	assert.False(t, p.Failures()[0].Err.IsUnsupportedPuzzle())
}

func TestAllUnsupportedExitCodesGiveUnsupportedStatus(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(2)
	p.CaseStarted()
	_, err := p.CaseFinished(testcase.Case{}, procpool.Result{ExitCode: 2})
	require.NoError(t, err)
	_, err = p.CaseFinished(testcase.Case{}, procpool.Result{ExitCode: 2})
	require.NoError(t, err)

	assert.Equal(t, StatusUnsupported, p.Status())
}

func TestMissingPart2DoesNotFailTheCase(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()
	tc := testcase.Case{Part1: "A", Part2: nil}
	done, err := p.CaseFinished(tc, procpool.Result{ExitCode: 0, Stdout: "A\nanything\n"})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StatusPassed, p.Status())
}

func TestWrongLineCountIsInvalidOutput(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()
	_, err := p.CaseFinished(testcase.Case{Part1: "A"}, procpool.Result{ExitCode: 0, Stdout: "onlyoneline\n"})
	require.NoError(t, err)

	assert.Equal(t, StatusUnsupported, p.Status())
	assert.True(t, p.Failures()[0].Err.IsUnsupportedPuzzle())
}

func TestStderrOutputOnSuccessIsSolverError(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()
	_, err := p.CaseFinished(testcase.Case{Part1: "A", Part2: part2("B")}, procpool.Result{
		ExitCode: 0,
		Stdout:   "A\nB\n",
		Stderr:   "warning: something",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, p.Status())
}

func TestStdinWriteErrorOnSuccessfulExitIsFatal(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()

	writeErr := errors.New("broken pipe")
	_, err := p.CaseFinished(testcase.Case{Part1: "A"}, procpool.Result{
		ExitCode:      0,
		Stdout:        "A\nB\n",
		StdinWriteErr: writeErr,
	})

	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, 0, p.Succeeded())
	assert.Empty(t, p.Failures())
}

func TestStdoutReadErrorOnNonZeroExitIsFatal(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()

	readErr := errors.New("read failed")
	_, err := p.CaseFinished(testcase.Case{}, procpool.Result{
		ExitCode:  1,
		StdoutErr: readErr,
	})

	assert.ErrorIs(t, err, readErr)
	assert.Empty(t, p.Failures())
}

func TestStderrReadErrorOnNonZeroExitIsFatal(t *testing.T) {
	var p Puzzle
	p.SetCaseCount(1)
	p.CaseStarted()

	readErr := errors.New("read failed")
	_, err := p.CaseFinished(testcase.Case{}, procpool.Result{
		ExitCode:  1,
		StderrErr: readErr,
	})

	assert.ErrorIs(t, err, readErr)
	assert.Empty(t, p.Failures())
}
