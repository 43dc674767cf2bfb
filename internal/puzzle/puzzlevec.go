package puzzle

import "github.com/ictrobot/aochand/internal/puzzleid"

// Vec is a dense, indexable collection of one T per (year, day) in
// [minYear, maxYear] x 1..=25, grounded on PuzzleVec<T>. internal/manager
// uses Vec[Puzzle] to track every puzzle's state.
type Vec[T any] struct {
	minYear, maxYear int
	items            []T
}

// NewVec builds a Vec by calling initFn once per puzzle id, in (year, day)
// order.
func NewVec[T any](minYear, maxYear int, initFn func(id puzzleid.ID) T) *Vec[T] {
	ids := puzzleid.All(minYear, maxYear)
	items := make([]T, len(ids))
	for i, id := range ids {
		items[i] = initFn(id)
	}
	return &Vec[T]{minYear: minYear, maxYear: maxYear, items: items}
}

func (v *Vec[T]) index(id puzzleid.ID) int {
	if id.Year < v.minYear || id.Year > v.maxYear {
		panic("puzzle: year out of range for this Vec")
	}
	return 25*(id.Year-v.minYear) + (id.Day - 1)
}

// At returns a pointer to the stored value for id, so callers can mutate it
// in place.
func (v *Vec[T]) At(id puzzleid.ID) *T {
	return &v.items[v.index(id)]
}

// Year returns the 25-element slice for one year, ordered by day.
func (v *Vec[T]) Year(year int) []T {
	id := puzzleid.ID{Year: year, Day: 1}
	i := v.index(id)
	return v.items[i : i+25]
}

// Puzzles returns every (year, day) id this Vec covers, in order.
func (v *Vec[T]) Puzzles() []puzzleid.ID {
	return puzzleid.All(v.minYear, v.maxYear)
}

// MinYear returns the lowest year covered.
func (v *Vec[T]) MinYear() int { return v.minYear }

// MaxYear returns the highest year covered.
func (v *Vec[T]) MaxYear() int { return v.maxYear }
