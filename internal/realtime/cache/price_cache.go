package cache

import (
	"sync"
	"time"

	"github.com/joonholab/argos/internal/realtime"
	"github.com/joonholab/argos/pkg/logger"
)

// PriceCache is an in-memory cache for real-time prices
// ⭐ SSOT: 실시간 가격 캐싱은 이 구조체에서만
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]*realtime.PriceTick
	ttl    time.Duration
	logger *logger.Logger
}

// NewPriceCache creates a new price cache. Entries older than ttl are
// treated as stale and swept by CleanStale.
func NewPriceCache(ttl time.Duration, log *logger.Logger) *PriceCache {
	return &PriceCache{
		prices: make(map[string]*realtime.PriceTick),
		ttl:    ttl,
		logger: log,
	}
}

// Update stores a tick unless a newer one is already cached.
func (c *PriceCache) Update(tick *realtime.PriceTick) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.prices[tick.Code]; exists {
		if tick.Timestamp.Before(existing.Timestamp) {
			c.logger.WithFields(map[string]interface{}{
				"code":     tick.Code,
				"new_time": tick.Timestamp,
				"old_time": existing.Timestamp,
			}).Debug("Rejected older price data")
			return false
		}
	}

	c.prices[tick.Code] = tick
	return true
}

// Get retrieves a cached price.
func (c *PriceCache) Get(code string) (*realtime.PriceTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tick, exists := c.prices[code]
	return tick, exists
}

// GetMany retrieves multiple prices at once.
func (c *PriceCache) GetMany(codes []string) map[string]*realtime.PriceTick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*realtime.PriceTick, len(codes))
	for _, code := range codes {
		if tick, exists := c.prices[code]; exists {
			result[code] = tick
		}
	}
	return result
}

// Delete removes one entry.
func (c *PriceCache) Delete(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.prices, code)
}

// Len returns the number of cached prices.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.prices)
}

// CleanStale removes entries older than the TTL and returns how many were
// dropped.
func (c *PriceCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for code, tick := range c.prices {
		if now.Sub(tick.Timestamp) > c.ttl {
			delete(c.prices, code)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale prices from cache")
	}
	return count
}
