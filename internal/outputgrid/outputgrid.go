// Package outputgrid renders the year x day status grid to a terminal using
// cursor-relative ANSI escapes (C7 in spec.md), grounded on
// crates/aoc/src/cli/mode/test/output_grid.rs of the original implementation.
package outputgrid

import (
	"fmt"
	"io"
	"time"

	"github.com/ictrobot/aochand/internal/puzzle"
	"github.com/ictrobot/aochand/internal/puzzleid"
)

// spinnerFrames are the same braille spinner glyphs as the original's
// SPINNER table.
var spinnerFrames = [...]string{"⠋", "⠙", "⠸", "⠴", "⠦", "⠇"}

// SpinnerInterval is how long each spinner frame is shown for a running cell.
const SpinnerInterval = 100 * time.Millisecond

// UpdateInterval is the target redraw cadence: once per 60Hz frame, matching
// the original's UPDATE_INTERVAL.
const UpdateInterval = time.Second / 60

// cell tracks one grid square's rendered status plus, while running, when it
// started so the spinner animates independently of redraw cadence.
type cell struct {
	status  puzzle.Status
	running time.Time
}

// Grid renders a year x day status grid to out, tracking the cursor position
// itself so every update only emits the minimal ANSI movement needed.
type Grid struct {
	minYear, maxYear int
	out              io.Writer
	cursorRow        int
	cursorCol        int
	statuses         *puzzle.Vec[cell]
}

// New writes the initial grid (headers plus every cell in StatusInitial) to
// out and returns a Grid ready for Update calls.
func New(minYear, maxYear int, out io.Writer) (*Grid, error) {
	g := &Grid{
		minYear:  minYear,
		maxYear:  maxYear,
		out:      out,
		statuses: puzzle.NewVec(minYear, maxYear, func(puzzleid.ID) cell { return cell{} }),
	}

	if err := g.printGrid(); err != nil {
		return nil, err
	}
	return g, nil
}

// Update sets id's status, redrawing its cell if the status actually
// changed. runningSince is only consulted when status is StatusRunning; it
// anchors the spinner's animation phase.
func (g *Grid) Update(id puzzleid.ID, status puzzle.Status, runningSince time.Time) error {
	c := g.statuses.At(id)
	if c.status == status {
		return nil
	}
	c.status = status
	if status == puzzle.StatusRunning {
		c.running = runningSince
	}
	return g.redraw(id)
}

// UpdateSpinners redraws every cell currently in StatusRunning, advancing
// its spinner frame. Call this on a ticker to animate running cells.
func (g *Grid) UpdateSpinners() error {
	for _, id := range g.statuses.Puzzles() {
		if g.statuses.At(id).status == puzzle.StatusRunning {
			if err := g.redraw(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetPendingToUnknown marks every still-pending (Initial or Running) cell as
// Unknown. Used when the driver is shutting down early (e.g. Ctrl-C) and
// some puzzles never got a final answer.
func (g *Grid) SetPendingToUnknown() error {
	for _, id := range g.statuses.Puzzles() {
		if g.statuses.At(id).status.IsPending() {
			if err := g.Update(id, puzzle.StatusUnknown, time.Time{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush moves the cursor to the end of the grid and flushes out, if out
// implements an explicit Flush method; otherwise this only repositions the
// cursor.
func (g *Grid) Flush() error {
	if err := g.returnToEnd(); err != nil {
		return err
	}
	return flushIfPossible(g.out)
}

// Close moves the cursor past the grid, emits a trailing newline, and
// flushes, matching the original's Drop impl. Call this once the grid is no
// longer being updated.
func (g *Grid) Close() error {
	if err := g.returnToEnd(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(g.out); err != nil {
		return err
	}
	return flushIfPossible(g.out)
}

type flusher interface{ Flush() error }

func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (g *Grid) printGrid() error {
	if _, err := fmt.Fprint(g.out, "    "); err != nil {
		return err
	}
	for d := 1; d <= 25; d++ {
		if _, err := fmt.Fprintf(g.out, " %02d", d); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(g.out); err != nil {
		return err
	}

	for y := g.minYear; y <= g.maxYear; y++ {
		if _, err := fmt.Fprintf(g.out, "%d", y); err != nil {
			return err
		}
		for d := 1; d <= 25; d++ {
			if _, err := fmt.Fprintf(g.out, "  %s", puzzle.StatusInitial.Symbol()); err != nil {
				return err
			}
		}
		if y != g.maxYear {
			if _, err := fmt.Fprintln(g.out); err != nil {
				return err
			}
		}
	}

	g.cursorRow, g.cursorCol = g.position(g.maxYear, 25)
	return flushIfPossible(g.out)
}

// position returns the tracked cursor (row, col) just after a puzzle cell's
// symbol; redraw writes the symbol at col-1. Rows count from minYear's row.
// Only differences between tracked positions are emitted, so they need not
// equal the terminal's absolute coordinates.
func (g *Grid) position(year, day int) (row, col int) {
	return year - g.minYear, 4 + 3*(day-1)
}

func (g *Grid) returnToEnd() error {
	row, col := g.position(g.maxYear, 25)
	return g.moveCursorTo(row, col)
}

// moveCursorTo emits the minimal CSI cursor-movement sequence from the
// tracked current position to (row, col), then updates the tracked position.
func (g *Grid) moveCursorTo(row, col int) error {
	switch {
	case g.cursorRow > row:
		if _, err := fmt.Fprintf(g.out, "\x1b[%dA", g.cursorRow-row); err != nil {
			return err
		}
	case g.cursorRow < row:
		if _, err := fmt.Fprintf(g.out, "\x1b[%dB", row-g.cursorRow); err != nil {
			return err
		}
	}
	g.cursorRow = row

	switch {
	case g.cursorCol > col:
		if _, err := fmt.Fprintf(g.out, "\x1b[%dD", g.cursorCol-col); err != nil {
			return err
		}
	case g.cursorCol < col:
		if _, err := fmt.Fprintf(g.out, "\x1b[%dC", col-g.cursorCol); err != nil {
			return err
		}
	}
	g.cursorCol = col

	return nil
}

func (g *Grid) redraw(id puzzleid.ID) error {
	c := g.statuses.At(id)

	row, col := g.position(id.Year, id.Day)
	if err := g.moveCursorTo(row, col-1); err != nil {
		return err
	}

	if _, err := fmt.Fprint(g.out, symbol(*c)); err != nil {
		return err
	}
	g.cursorCol++

	return nil
}

// symbol returns the glyph for a cell, substituting the current spinner
// frame for a running cell's blank placeholder.
func symbol(c cell) string {
	if c.status == puzzle.StatusRunning {
		age := time.Since(c.running) / SpinnerInterval
		return spinnerFrames[int(age)%len(spinnerFrames)]
	}
	return c.status.Symbol()
}
