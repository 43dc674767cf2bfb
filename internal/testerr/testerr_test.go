package testerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnsupportedPuzzle(t *testing.T) {
	assert.True(t, (&SolverError{ExitCode: 2}).IsUnsupportedPuzzle())
	assert.False(t, (&SolverError{ExitCode: 1}).IsUnsupportedPuzzle())
	assert.True(t, (&InvalidOutput{}).IsUnsupportedPuzzle())
	assert.False(t, (&IncorrectAnswer{}).IsUnsupportedPuzzle())
	assert.False(t, (&Killed{}).IsUnsupportedPuzzle())
}

func TestIncorrectAnswerMessage(t *testing.T) {
	err := &IncorrectAnswer{Part2: &Mismatch{Got: "C", Expected: "B"}}
	assert.Equal(t, `part 2 incorrect, got "C", expected "B"`, err.Error())

	err2 := &IncorrectAnswer{
		Part1: &Mismatch{Got: "X", Expected: "A"},
		Part2: &Mismatch{Got: "C", Expected: "B"},
	}
	assert.Equal(t, `part 1 incorrect, got "X", expected "A". part 2 incorrect, got "C", expected "B"`, err2.Error())
}

func TestKilledMessage(t *testing.T) {
	assert.Equal(t, "solver exceeded timeout", (&Killed{}).Error())
}

func TestSolverErrorMessage(t *testing.T) {
	assert.Equal(t, "unsupported puzzle (exit code 2)", (&SolverError{ExitCode: 2}).Error())
	assert.Equal(t, `unsupported puzzle (exit code 2): "oops"`, (&SolverError{ExitCode: 2, Stderr: "oops"}).Error())
	assert.Equal(t, `exit status 1: "boom"`, (&SolverError{ExitCode: 1, Stderr: "boom"}).Error())
}
