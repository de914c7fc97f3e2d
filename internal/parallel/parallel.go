// Package parallel runs independent evaluation jobs on a bounded set of goroutines.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Workers int // Maximum concurrent jobs. 0 means one per CPU.
}

// DefaultConfig returns one worker per CPU.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// For executes f(i) for i in [0, n), at most cfg.Workers at a time.
func For(n int, f func(i int), cfg Config) {
	var g errgroup.Group
	g.SetLimit(cfg.workers())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			f(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Map runs f for every index and returns the results in index order. Every job runs to
// completion; the returned error is the one with the lowest index.
func Map[T any](n int, f func(i int) (T, error), cfg Config) ([]T, error) {
	out := make([]T, n)
	errs := make([]error, n)
	For(n, func(i int) {
		out[i], errs[i] = f(i)
	}, cfg)
	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
