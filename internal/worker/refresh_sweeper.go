package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredTokenDeleter removes refresh records past their expiry.
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunRefreshSweeper deletes expired refresh records every interval until ctx is done.
func RunRefreshSweeper(ctx context.Context, store ExpiredTokenDeleter, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweep(ctx, store, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, store ExpiredTokenDeleter, logger *zap.Logger) {
	removed, err := store.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("refresh token sweep failed", zap.Error(err))
		}
		return
	}
	if removed > 0 {
		logger.Info("expired refresh tokens removed", zap.Int64("count", removed))
	}
}
