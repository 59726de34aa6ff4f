package app

import (
	"context"
	"time"

	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/bissquit/sellerdesk/internal/pkg/metrics"
)

const gaugeInterval = 15 * time.Second

func (a *App) startBackground() {
	a.goBackground(a.refreshGauges)

	if a.scheduler != nil {
		a.scheduler.Start(a.bgCtx)
	}

	if a.consumer != nil {
		a.goBackground(func(ctx context.Context) {
			if err := a.consumer.Run(ctx); err != nil {
				a.logger.Error("order consumer stopped", "error", err)
			}
		})
	}
}

func (a *App) goBackground(fn func(ctx context.Context)) {
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		fn(a.bgCtx)
	}()
}

// refreshGauges keeps pool and queue gauges current between passes.
func (a *App) refreshGauges(ctx context.Context) {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		metrics.RecordDBPoolMetrics(a.db)

		stats, err := a.queue.GetStats(ctx)
		switch {
		case err == nil:
			notifications.RecordQueueStats(stats)
		case ctx.Err() == nil:
			a.logger.Warn("failed to refresh queue gauges", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
