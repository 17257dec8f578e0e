package core

import (
	"context"
	"time"

	"github.com/xiaopang/insight/internal/logger"
)

// ActivityCleaner deletes activity older than a cutoff.
type ActivityCleaner interface {
	CleanBefore(cutoff time.Time) (int64, error)
}

// Every runs fn immediately and then every interval until ctx is done.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		interval = time.Hour
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// RetentionTask prunes activity older than days.
func RetentionTask(c ActivityCleaner, days int, log *logger.Logger) func(context.Context) {
	if log == nil {
		log = logger.Default()
	}
	return func(context.Context) {
		if days <= 0 {
			return
		}
		n, err := c.CleanBefore(time.Now().AddDate(0, 0, -days))
		if err != nil {
			log.Warn("activity retention failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("activity pruned", "rows", n, "retention_days", days)
		}
	}
}
