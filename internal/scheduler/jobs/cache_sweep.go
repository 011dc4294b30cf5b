package jobs

import (
	"context"

	"github.com/joonholab/argos/internal/realtime/cache"
	"github.com/joonholab/argos/pkg/logger"
)

// CacheSweepJob evicts stale entries from the realtime price cache.
type CacheSweepJob struct {
	cache  *cache.PriceCache
	logger *logger.Logger
}

// NewCacheSweepJob creates the periodic cache sweep.
func NewCacheSweepJob(priceCache *cache.PriceCache, log *logger.Logger) *CacheSweepJob {
	return &CacheSweepJob{cache: priceCache, logger: log}
}

func (j *CacheSweepJob) Name() string { return "price_cache_sweep" }

func (j *CacheSweepJob) Schedule() string { return "0 */5 * * * *" }

func (j *CacheSweepJob) Run(ctx context.Context) error {
	removed := j.cache.CleanStale()
	if removed > 0 {
		j.logger.WithField("removed", removed).Debug("Swept stale price entries")
	}
	return nil
}
