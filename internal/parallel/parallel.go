// Package parallel runs index-range work either inline or across a bounded
// set of goroutines.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Runner executes fn over disjoint ranges [start, end) that together cover
// [0, n). For returns only after every range has finished, so callers can
// treat it as a barrier between dependent phases.
//
// batch is the preferred range length; the last range may be shorter.
// Values below 1 are treated as 1.
type Runner interface {
	For(n, batch int, fn func(start, end int))
}

// Serial runs every range on the calling goroutine, in order.
type Serial struct{}

// For implements Runner.
func (Serial) For(n, batch int, fn func(start, end int)) {
	if batch < 1 {
		batch = 1
	}
	for start := 0; start < n; start += batch {
		fn(start, min(start+batch, n))
	}
}

// Pool spreads ranges across at most Workers goroutines.
type Pool struct {
	workers int
}

// NewPool returns a Pool limited to workers goroutines.
// workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the goroutine limit.
func (p *Pool) Workers() int {
	return p.workers
}

// For implements Runner.
func (p *Pool) For(n, batch int, fn func(start, end int)) {
	if batch < 1 {
		batch = 1
	}
	// Not worth a goroutine
	if n <= batch || p.workers == 1 {
		Serial{}.For(n, batch, fn)
		return
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for start := 0; start < n; start += batch {
		start := start
		end := min(start+batch, n)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// New returns Serial for workers == 1 and a Pool otherwise.
func New(workers int) Runner {
	if workers == 1 {
		return Serial{}
	}
	return NewPool(workers)
}
