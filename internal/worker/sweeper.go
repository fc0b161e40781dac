package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper performs one pass over expiring state.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// StartSubscriptionSweeper calls sweeper.Sweep every interval until ctx is
// done. The returned channel closes when the loop exits.
func StartSubscriptionSweeper(ctx context.Context, interval time.Duration, sweeper Sweeper, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("subscription sweeper started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("subscription sweeper stopped")
				return
			case <-ticker.C:
				if err := sweeper.Sweep(ctx); err != nil {
					logger.Error("subscription sweep failed", zap.Error(err))
				}
			}
		}
	}()
	return done
}
