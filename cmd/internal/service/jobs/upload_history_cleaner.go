package jobs

import (
	"context"
	"time"

	"companyinfo/cmd/internal/utils"

	"github.com/labstack/gommon/log"
)

const CleanInterval = 1 * time.Hour

type UploadRepository interface {
	DeleteOlderThan(ctx context.Context, before int64) (int64, error)
}

// UploadHistoryCleaner prunes upload reports older than ttl.
type UploadHistoryCleaner struct {
	uploadRepo UploadRepository
	ttl        time.Duration
}

func NewUploadHistoryCleaner(repo UploadRepository, ttl time.Duration) *UploadHistoryCleaner {
	return &UploadHistoryCleaner{uploadRepo: repo, ttl: ttl}
}

// Start blocks until ctx is done. A zero ttl keeps the history forever.
func (c *UploadHistoryCleaner) Start(ctx context.Context) {
	if c.ttl <= 0 {
		log.Info("Upload history cleaner disabled")
		return
	}

	ticker := time.NewTicker(CleanInterval)
	defer ticker.Stop()

	log.Info("Upload history cleaner cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping upload history cleaner...")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *UploadHistoryCleaner) cleanup(ctx context.Context) {
	cutoff := utils.NowUTC() - c.ttl.Milliseconds()

	deleted, err := c.uploadRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Errorf("Cleaner: failed to delete expired upload reports: %v", err)
		return
	}

	log.Debugf("Cleaner: swept %d upload reports older than %d", deleted, cutoff)
}
