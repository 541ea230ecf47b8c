package processor

import (
	"golang.org/x/sync/errgroup"
)

// MapStage splits an item's rows across a fixed number of workers and
// joins them all before returning.
type MapStage struct {
	workers int
}

// NewMapStage creates a map stage with n workers (at least one).
func NewMapStage(n int) *MapStage {
	if n < 1 {
		n = 1
	}
	return &MapStage{workers: n}
}

// Workers returns the degree of parallelism.
func (m *MapStage) Workers() int {
	return m.workers
}

// Run calls fn once per worker with that worker's index and row range,
// each on its own goroutine, and waits for every call to finish. Workers
// that receive an empty range are skipped. The first error is returned
// after the join.
func (m *MapStage) Run(height int, fn func(worker int, rows RowRange) error) error {
	ranges := Partition(height, m.workers)

	if m.workers == 1 {
		if ranges[0].Empty() {
			return nil
		}
		return fn(0, ranges[0])
	}

	var g errgroup.Group
	for i, r := range ranges {
		if r.Empty() {
			continue
		}
		g.Go(func() error {
			return fn(i, r)
		})
	}
	return g.Wait()
}
