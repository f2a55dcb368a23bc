package scheduler

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

const JobMediaCleanup = "media_cleanup"

// MediaCleaner is satisfied by the catalog service.
type MediaCleaner interface {
	CleanupTempMedia(ctx context.Context, olderThan time.Duration) (int64, error)
}

// MediaCleanupJob removes uploads that were never attached within ttl.
func MediaCleanupJob(media MediaCleaner, ttl time.Duration) Job {
	return func(ctx context.Context) error {
		n, err := media.CleanupTempMedia(ctx, ttl)
		if err != nil {
			return err
		}
		if n > 0 {
			logctx.FromOr(ctx, observability.NopLogger()).Info("temp_media_removed", observability.F("count", n))
		}
		return nil
	}
}
