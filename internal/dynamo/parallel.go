package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every i in [0, n) with at most limit calls in flight.
// limit <= 0 means GOMAXPROCS. The first error cancels the context passed to
// the remaining calls and is returned.
func Map(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// Build returns a fresh simulator and initial state for run i. Every run
// must get its own System and Integrator.
type Build func(i int) (*Simulator, State, error)

type Ensemble struct {
	build   Build
	numRuns int
	limit   int
}

func NewEnsemble(build Build, numRuns, limit int) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, limit: limit}
}

// Run executes every member with the same config. Results are indexed by
// run number regardless of completion order.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	err := Map(ctx, e.numRuns, e.limit, func(ctx context.Context, i int) error {
		s, x0, err := e.build(i)
		if err != nil {
			return err
		}
		res, err := s.Run(ctx, x0, cfg)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
