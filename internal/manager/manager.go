// Package manager implements the test-mode driver (C8 in spec.md): it owns
// the test-case reader, process pool and output grid, runs the scheduling
// loop, and prints the final summary. Grounded on
// crates/aoc/src/cli/mode/test/manager.rs of the original implementation.
package manager

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ictrobot/aochand/internal/obslog"
	"github.com/ictrobot/aochand/internal/outputgrid"
	"github.com/ictrobot/aochand/internal/procpool"
	"github.com/ictrobot/aochand/internal/puzzle"
	"github.com/ictrobot/aochand/internal/puzzleid"
	"github.com/ictrobot/aochand/internal/testcase"
	"github.com/ictrobot/aochand/internal/usageerr"
)

// cmdTimeout bounds how long a single solver invocation may run before it is
// killed, matching the original's CMD_TIMEOUT.
const cmdTimeout = 10 * time.Second

// finishedJob is the correlation token carried through the process pool for
// a Finished event: which puzzle it belongs to, and the case that was run.
type finishedJob struct {
	id    puzzleid.ID
	case_ testcase.Case
}

// Manager drives a full test run: discovering cases, scheduling solver
// processes, and rendering live progress to the terminal.
type Manager struct {
	cmdTemplate []string
	reader      *testcase.Reader
	pool        *procpool.Pool[puzzleid.ID, finishedJob]

	pendingUpdates map[puzzleid.ID]struct{}
	puzzles        *puzzle.Vec[puzzle.Puzzle]

	minYear, maxYear int
	log              *obslog.Logger
}

// Options configures a Run.
type Options struct {
	MinYear, MaxYear int
	CmdTemplate      []string
	InputsDir        string
	Processes        int
	Out              io.Writer
	// Log receives structured diagnostics for the run. A nil Log disables
	// logging entirely.
	Log *obslog.Logger
}

// Run executes a full test pass: it discovers test cases under
// opts.InputsDir for every puzzle in [opts.MinYear, opts.MaxYear], spawns
// opts.CmdTemplate (with ${YEAR}/${DAY} substituted) once per case, renders
// live progress to opts.Out, and returns usageerr.ErrFailedSilent if the run
// as a whole should be considered a failure.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = obslog.Nop()
	}

	reader := testcase.NewReader(ctx, opts.InputsDir, opts.MinYear, opts.MaxYear)
	pool := procpool.New[puzzleid.ID, finishedJob](ctx, opts.Processes, log)

	m := &Manager{
		cmdTemplate:    opts.CmdTemplate,
		reader:         reader,
		pool:           pool,
		pendingUpdates: make(map[puzzleid.ID]struct{}),
		puzzles:        puzzle.NewVec(opts.MinYear, opts.MaxYear, func(puzzleid.ID) puzzle.Puzzle { return puzzle.Puzzle{} }),
		minYear:        opts.MinYear,
		maxYear:        opts.MaxYear,
		log:            log,
	}

	log.Info().
		Int(`min_year`, opts.MinYear).
		Int(`max_year`, opts.MaxYear).
		Int(`processes`, opts.Processes).
		Log(`starting test run`)

	grid, err := outputgrid.New(opts.MinYear, opts.MaxYear, opts.Out)
	if err != nil {
		log.Err().Err(err).Log(`failed to initialize output grid`)
		return err
	}

	if err := m.mainLoop(grid); err != nil {
		log.Err().Err(err).Log(`test run aborted`)
		_ = grid.SetPendingToUnknown()
		_ = grid.Close()
		_ = reader.Close()
		_ = pool.Shutdown()
		return err
	}

	m.updateGrid(grid)
	if err := grid.Close(); err != nil {
		return err
	}

	if err := reader.Close(); err != nil {
		return err
	}
	if err := pool.Shutdown(); err != nil {
		return err
	}

	m.printSummary(opts.Out)
	result := m.returnValue()
	log.Info().Bool(`passed`, result == nil).Log(`test run finished`)
	return result
}

// spinnerInterval and updateInterval mirror the output grid's own pacing
// constants, re-exposed here because the main loop's scheduling decisions
// depend on them directly.
const (
	spinnerInterval = outputgrid.SpinnerInterval
	updateInterval  = outputgrid.UpdateInterval
)

func (m *Manager) mainLoop(grid *outputgrid.Grid) error {
	nextSpinnerTick := time.Now().Add(spinnerInterval)
	nextUpdate := time.Now()

	for !m.reader.IsDone() || m.pool.PendingResults() > 0 {
		now := time.Now()

		if !now.Before(nextSpinnerTick) {
			if err := grid.UpdateSpinners(); err != nil {
				return err
			}
			nextSpinnerTick = nextSpinnerTick.Add(spinnerInterval)
			if now.Before(nextUpdate) {
				nextUpdate = now
			}
		}

		if len(m.pendingUpdates) > 0 && !now.Before(nextUpdate) {
			m.updateGrid(grid)
			if nextUpdate.Add(updateInterval).Before(now) {
				nextUpdate = now.Add(updateInterval)
			} else {
				nextUpdate = nextUpdate.Add(updateInterval)
			}
		}

		if err := grid.Flush(); err != nil {
			return err
		}

		if err := m.enqueueProcesses(); err != nil {
			return err
		}

		target := nextSpinnerTick
		if len(m.pendingUpdates) > 0 && nextUpdate.Before(target) {
			target = nextUpdate
		}
		if err := m.processResult(saturatingUntil(target, time.Now())); err != nil {
			return err
		}
	}

	return nil
}

// saturatingUntil returns target - now, clamped to zero if target is not
// after now, matching Instant::saturating_duration_since.
func saturatingUntil(target, now time.Time) time.Duration {
	d := target.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (m *Manager) updateGrid(grid *outputgrid.Grid) {
	ids := make([]puzzleid.ID, 0, len(m.pendingUpdates))
	for id := range m.pendingUpdates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	for _, id := range ids {
		p := m.puzzles.At(id)
		startedAt, _ := p.StartedAt()
		_ = grid.Update(id, p.Status(), startedAt)
	}
	m.pendingUpdates = make(map[puzzleid.ID]struct{})
}

func (m *Manager) enqueueProcesses() error {
	if m.reader.IsDone() {
		m.pool.Close()
		return nil
	}

	for m.pool.PendingResults() <= m.pool.MaxProcesses()*2 {
		id, cases, got, err := m.reader.TryNext()
		if err != nil {
			return err
		}
		if !got {
			break
		}

		if m.puzzles.At(id).SetCaseCount(len(cases)) {
			m.pendingUpdates[id] = struct{}{}
		}

		for _, c := range cases {
			m.enqueueProcess(id, c)
		}
	}

	return nil
}

func (m *Manager) enqueueProcess(id puzzleid.ID, c testcase.Case) {
	args := make([]string, len(m.cmdTemplate))
	for i, s := range m.cmdTemplate {
		r := strings.ReplaceAll(s, "${YEAR}", strconv.Itoa(id.Year))
		r = strings.ReplaceAll(r, "${DAY}", strconv.Itoa(id.Day))
		args[i] = r
	}

	m.pool.Enqueue(procpool.Job{
		Command: args,
		Stdin:   c.Input,
		Timeout: cmdTimeout,
	}, id, finishedJob{id: id, case_: c})
}

func (m *Manager) processResult(timeout time.Duration) error {
	event, ok := m.pool.RecvTimeout(timeout)
	if !ok {
		return nil
	}

	if event.SpawnErr != nil {
		return event.SpawnErr
	}

	if event.Started {
		if m.puzzles.At(event.StartID).CaseStarted() {
			m.pendingUpdates[event.StartID] = struct{}{}
		}
		return nil
	}

	fin := event.ID
	done, err := m.puzzles.At(fin.id).CaseFinished(fin.case_, event.Result)
	if err != nil {
		return err
	}
	if done {
		m.pendingUpdates[fin.id] = struct{}{}
	}
	return nil
}

// printSummary renders the per-year/per-day rollup, grouping consecutive
// years or days that share a failure-free status. Grounded on
// Manager::print_summary.
func (m *Manager) printSummary(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")

	ids := m.puzzles.Puzzles()
	i := 0
	lastYear := -1
	for i < len(ids) {
		id := ids[i]
		status := m.puzzles.At(id).Status()

		if id.Day == 1 && !status.HasFailures() && m.yearMatchesStatus(id.Year, status) {
			maxYear := id.Year
			for maxYear+1 <= m.maxYear && m.yearMatchesStatus(maxYear+1, status) {
				maxYear++
			}

			succeeded, total := 0, 0
			for y := id.Year; y <= maxYear; y++ {
				for _, p := range m.puzzles.Year(y) {
					succeeded += p.Succeeded()
					total += p.CaseCount()
				}
			}

			if id.Year == maxYear {
				fmt.Fprintf(out, "%s %d %s (%d/%d)\n", status.Symbol(), id.Year, status, succeeded, total)
			} else {
				fmt.Fprintf(out, "%s %d-%d %s (%d/%d)\n", status.Symbol(), id.Year, maxYear, status, succeeded, total)
			}
			for i < len(ids) && ids[i].Year <= maxYear {
				i++
			}
			lastYear = maxYear
			continue
		}

		if lastYear != id.Year {
			fmt.Fprintf(out, "%s %d\n", puzzle.StatusMixed.Symbol(), id.Year)
			lastYear = id.Year
		}

		p := m.puzzles.At(id)
		failures := p.Failures()

		if len(failures) > 0 && !allUnsupported(failures) {
			fmt.Fprintf(out, "  %s %d %s (%d/%d)\n", status.Symbol(), id.Day, status, p.Succeeded(), p.CaseCount())
			for _, f := range failures {
				fmt.Fprintf(out, "    %s %s: %s\n", puzzle.StatusFailed.Symbol(), f.InputPath, f.Err)
			}
			i++
			continue
		}

		succeeded, total, maxDay := p.Succeeded(), p.CaseCount(), -1
		j := i + 1
		for j < len(ids) && ids[j].Year == id.Year && m.puzzles.At(ids[j]).Status() == status {
			maxDay = ids[j].Day
			pj := m.puzzles.At(ids[j])
			succeeded += pj.Succeeded()
			total += pj.CaseCount()
			j++
		}

		if maxDay >= 0 {
			fmt.Fprintf(out, "  %s %d-%d %s (%d/%d)\n", status.Symbol(), id.Day, maxDay, status, succeeded, total)
		} else {
			fmt.Fprintf(out, "  %s %d %s (%d/%d)\n", status.Symbol(), id.Day, status, succeeded, total)
		}
		i = j
	}
}

// yearMatchesStatus reports whether every day of year has exactly status.
func (m *Manager) yearMatchesStatus(year int, status puzzle.Status) bool {
	if year > m.maxYear {
		return false
	}
	for _, p := range m.puzzles.Year(year) {
		if p.Status() != status {
			return false
		}
	}
	return true
}

func allUnsupported(failures []puzzle.Failure) bool {
	for _, f := range failures {
		if !f.Err.IsUnsupportedPuzzle() {
			return false
		}
	}
	return true
}

// returnValue decides the run's overall disposition. Grounded on
// Manager::return_value: any real (non-unsupported) failure, or a run with
// zero successes at all, is a silent failure.
func (m *Manager) returnValue() error {
	anySucceeded := false
	for _, id := range m.puzzles.Puzzles() {
		p := m.puzzles.At(id)
		if p.Succeeded() > 0 {
			anySucceeded = true
		}
		for _, f := range p.Failures() {
			if !f.Err.IsUnsupportedPuzzle() {
				return usageerr.ErrFailedSilent
			}
		}
	}
	if anySucceeded {
		return nil
	}
	return usageerr.ErrFailedSilent
}
