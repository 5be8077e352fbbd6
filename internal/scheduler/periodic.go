package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Periodic runs a named job on a fixed interval until the context is
// canceled. Jobs are idempotent per tick: a failed run is logged and simply
// runs again next period. The job also runs once at start.
func Periodic(ctx context.Context, clock Clock, name string, interval time.Duration, logger *zap.Logger, job func(context.Context) error) {
	run := func() {
		if err := job(ctx); err != nil {
			logger.Warn("periodic task failed",
				zap.String("task", name), zap.Error(err))
		}
	}

	run()

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			run()
		}
	}
}
