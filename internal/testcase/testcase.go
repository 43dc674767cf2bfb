// Package testcase implements discovery and ordered, parallel delivery of
// puzzle test cases from disk (C5 in spec.md). It is grounded on
// crates/aoc/src/cli/mode/test/test_case.rs of the original implementation.
package testcase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ictrobot/aochand/internal/puzzleid"
)

// workerCount mirrors the original's fixed THREADS = 8: reading inputs with
// several goroutines matters most on a cold page cache.
const workerCount = 8

// channelBound is the per-worker channel capacity. Keeping it at 1 bounds how
// far ahead of the consumer any single worker's input texts can accumulate in
// memory.
const channelBound = 1

// Case is one (input, part1, part2?, path) triple for a puzzle.
type Case struct {
	Input     string
	Part1     string
	Part2     *string
	InputPath string
}

// puzzleResult is what a reader worker sends for one (year, day): either its
// discovered cases, or a fatal read error.
type puzzleResult struct {
	id    puzzleid.ID
	cases []Case
	err   error
}

// Reader streams (year, day, cases) for every puzzle in [minYear, maxYear],
// preserving (year, day) order of delivery even though the K workers read in
// parallel.
type Reader struct {
	next int
	chs  []chan puzzleResult
	grp  *errgroup.Group
	done bool
}

// NewReader starts workerCount goroutines, each reading a disjoint stride of
// the puzzle list, and returns a Reader that delivers them to TryNext in
// (year, day) order.
func NewReader(ctx context.Context, inputsDir string, minYear, maxYear int) *Reader {
	ids := puzzleid.All(minYear, maxYear)

	grp, ctx := errgroup.WithContext(ctx)
	r := &Reader{
		chs: make([]chan puzzleResult, workerCount),
		grp: grp,
	}

	for w := 0; w < workerCount; w++ {
		ch := make(chan puzzleResult, channelBound)
		r.chs[w] = ch
		w := w
		grp.Go(func() error {
			defer close(ch)
			for i := w; i < len(ids); i += workerCount {
				id := ids[i]
				cases, err := ReadCases(inputsDir, id)
				select {
				case ch <- puzzleResult{id: id, cases: cases, err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	return r
}

// TryNext returns the next puzzle's discovered cases in (year, day) order;
// once every puzzle has been delivered it returns gotValue == false and
// IsDone reports true. It only advances past a worker once a value is
// actually received from it, which is what preserves global ordering while
// letting every worker read ahead.
//
// TryNext is non-blocking, per spec.md §4.8's manager loop pulling from C5
// without blocking the rest of the loop: gotValue is false if the current
// worker's channel has no value ready yet (try again later; this is not the
// same as done). A non-nil error is fatal: the caller should stop calling
// TryNext and propagate it; TryNext itself has already torn the reader down.
func (r *Reader) TryNext() (id puzzleid.ID, cases []Case, gotValue bool, err error) {
	if r.done {
		return puzzleid.ID{}, nil, false, nil
	}

	ch := r.chs[r.next%workerCount]
	select {
	case result, ok := <-ch:
		if !ok {
			// This worker's stride is exhausted (or it returned an error and
			// closed). Either way, once one worker channel closes in its
			// turn, every worker must have equally many or one-fewer
			// remaining items, so the whole reader is done.
			r.done = true
			return puzzleid.ID{}, nil, false, r.Close()
		}

		r.next++
		if result.err != nil {
			r.done = true
			_ = r.Close()
			return puzzleid.ID{}, nil, false, result.err
		}
		return result.id, result.cases, true, nil

	default:
		return puzzleid.ID{}, nil, false, nil
	}
}

// IsDone reports whether every puzzle has been delivered (or discovery
// failed and TryNext already surfaced the error).
func (r *Reader) IsDone() bool {
	return r.done
}

// Close drains every worker channel, discarding undelivered puzzles, and
// waits for every worker goroutine to exit; workers that are still reading
// run through their remaining puzzles first. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.grp == nil {
		return nil
	}
	// draining remaining values keeps workers from blocking forever on a
	// full channel; each channel holds at most channelBound values at a time.
	for _, ch := range r.chs {
		for range ch {
		}
	}
	err := r.grp.Wait()
	r.grp = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// DiscoverYearRange inspects inputsDir for "yearYYYY" directories and returns
// the inclusive [min, max] year range found, or ok == false if none exist.
// Grounded on test_case.rs::get_years.
func DiscoverYearRange(inputsDir string) (min, max int, ok bool, err error) {
	entries, err := os.ReadDir(inputsDir)
	if err != nil {
		return 0, 0, false, err
	}

	for _, entry := range entries {
		name := entry.Name()
		rest, found := strings.CutPrefix(name, "year")
		if !found || len(rest) != 4 {
			continue
		}
		if strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			continue
		}
		year, convErr := strconv.Atoi(rest)
		if convErr != nil {
			continue
		}

		if !ok {
			min, max, ok = year, year, true
			continue
		}
		if year < min {
			min = year
		}
		if year > max {
			max = year
		}
	}

	return min, max, ok, nil
}

// ReadCases discovers every test case for a single puzzle, per the three
// layout rules in spec.md §4.5. A puzzle directory that doesn't exist yields
// zero cases, not an error; any other I/O error is fatal and propagates.
func ReadCases(inputsDir string, id puzzleid.ID) ([]Case, error) {
	var cases []Case

	yearDir := filepath.Join(inputsDir, "year"+strconv.Itoa(id.Year))
	dayNum := fmt.Sprintf("%02d", id.Day)

	tryAdd := func(inputPath, part1Path, part2Path string) error {
		input, ok, err := readFile(inputPath)
		if err != nil || !ok {
			return err
		}
		part1, ok, err := readFile(part1Path)
		if err != nil || !ok {
			return err
		}
		part2, havePart2, err := readFile(part2Path)
		if err != nil {
			return err
		}

		relPath := inputPath
		if rel, err := filepath.Rel(inputsDir, inputPath); err == nil {
			relPath = rel
		}

		c := Case{Input: input, Part1: part1, InputPath: relPath}
		if havePart2 {
			c.Part2 = &part2
		}
		cases = append(cases, c)
		return nil
	}

	// Layout 1: {inputs}/yearYYYY/dayDD.txt + dayDD-part1.txt [+ dayDD-part2.txt]
	if err := tryAdd(
		filepath.Join(yearDir, "day"+dayNum+".txt"),
		filepath.Join(yearDir, "day"+dayNum+"-part1.txt"),
		filepath.Join(yearDir, "day"+dayNum+"-part2.txt"),
	); err != nil {
		return nil, err
	}

	// Layout 2: {inputs}/yearYYYY/dayDD/input.txt + part1.txt [+ part2.txt]
	dayDir := filepath.Join(yearDir, "day"+dayNum)
	if err := tryAdd(
		filepath.Join(dayDir, "input.txt"),
		filepath.Join(dayDir, "part1.txt"),
		filepath.Join(dayDir, "part2.txt"),
	); err != nil {
		return nil, err
	}

	// Layout 3: every non-regular-file child of dayDD/ is tried the same way,
	// to allow extra/community test inputs.
	entries, err := os.ReadDir(dayDir)
	switch {
	case err == nil:
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				continue
			}
			childDir := filepath.Join(dayDir, entry.Name())
			if err := tryAdd(
				filepath.Join(childDir, "input.txt"),
				filepath.Join(childDir, "part1.txt"),
				filepath.Join(childDir, "part2.txt"),
			); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		// no cases from this layout: the puzzle root doesn't exist, or a
		// path component leading to it is a plain file
	default:
		return nil, err
	}

	return cases, nil
}

// readFile reads path, returning ok == false (not an error) for a missing
// file, a missing parent directory, or a path component that is a file where
// a directory was expected.
func readFile(path string) (content string, ok bool, err error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return string(data), true, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR), errors.Is(err, syscall.EISDIR):
		return "", false, nil
	default:
		return "", false, err
	}
}
