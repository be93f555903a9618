package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunLimited executes tasks on a bounded worker pool and waits for all of
// them. Tasks handle their own failures; the pool never aborts early
// except through ctx. The same pool discipline backs both the source
// fan-out and the Tier-1 analysis stage, with different limits.
func RunLimited(ctx context.Context, limit int, tasks []func(context.Context)) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, task := range tasks {
		g.Go(func() error {
			task(gctx)
			return nil
		})
	}
	_ = g.Wait()
}
