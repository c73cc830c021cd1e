package scheduler

import (
	"context"
	"time"

	"vinosuggest-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done.
// Failures are logged and do not stop the loop.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	log := logging.With("scheduler")
	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("task", name).Msg("task failed")
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
