// Package cache provides TTL caching for assembled snapshots and predictions.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/metrics"
)

// Config controls cache behavior and its circuit breaker
type Config struct {
	TTL             time.Duration
	MaxSize         int
	BreakerFailures int
	BreakerCooldown time.Duration
}

// SnapshotCache is a TTL cache with circuit-breaker semantics: after N
// consecutive failures the cache is bypassed for a cooldown period and
// callers fall back to direct computation.
type SnapshotCache struct {
	cache   *gocache.Cache
	ttl     time.Duration
	maxSize int
	logger  *logrus.Logger

	mu                  sync.Mutex
	hitCount            uint64
	missCount           uint64
	consecutiveFailures int
	breakerFailures     int
	breakerCooldown     time.Duration
	openUntil           time.Time
}

// New creates a new snapshot cache
func New(cfg Config, logger *logrus.Logger) *SnapshotCache {
	return &SnapshotCache{
		cache:           gocache.New(cfg.TTL, cfg.TTL*2),
		ttl:             cfg.TTL,
		maxSize:         cfg.MaxSize,
		breakerFailures: cfg.BreakerFailures,
		breakerCooldown: cfg.BreakerCooldown,
		logger:          logger,
	}
}

// Get retrieves a cached value. The second return is false on miss or when
// the breaker is open.
func (c *SnapshotCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bypassLocked() {
		return nil, false
	}

	value, found := c.cache.Get(key)
	if !found {
		c.missCount++
		c.updateMetricsLocked()
		return nil, false
	}

	c.hitCount++
	c.consecutiveFailures = 0
	c.updateMetricsLocked()
	return value, true
}

// Set stores a value. A full cache counts as a failure toward the breaker so
// a misbehaving cache degrades to direct computation instead of thrashing.
func (c *SnapshotCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with an explicit TTL
func (c *SnapshotCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bypassLocked() {
		return
	}

	if c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.recordFailureLocked()
			return
		}
	}

	c.cache.Set(key, value, ttl)
	c.consecutiveFailures = 0
}

// Clear flushes the entire cache and resets the breaker
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.hitCount = 0
	c.missCount = 0
	c.consecutiveFailures = 0
	c.openUntil = time.Time{}
}

// Stats returns cache statistics
func (c *SnapshotCache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits = c.hitCount
	misses = c.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// BreakerOpen reports whether the cache is currently bypassed
func (c *SnapshotCache) BreakerOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bypassLocked()
}

// ItemCount returns the number of items in cache
func (c *SnapshotCache) ItemCount() int {
	return c.cache.ItemCount()
}

func (c *SnapshotCache) bypassLocked() bool {
	if c.openUntil.IsZero() {
		return false
	}
	if time.Now().Before(c.openUntil) {
		return true
	}
	// Cooldown elapsed; close the breaker and retry the cache
	c.openUntil = time.Time{}
	c.consecutiveFailures = 0
	return false
}

func (c *SnapshotCache) recordFailureLocked() {
	c.consecutiveFailures++
	if c.consecutiveFailures >= c.breakerFailures {
		c.openUntil = time.Now().Add(c.breakerCooldown)
		c.consecutiveFailures = 0
		metrics.CacheBreakerTripsTotal.Inc()
		c.logger.WithField("cooldown", c.breakerCooldown).Warn("Cache circuit breaker opened, bypassing cache")
	}
}

func (c *SnapshotCache) updateMetricsLocked() {
	total := c.hitCount + c.missCount
	if total > 0 {
		metrics.CacheHitRatio.Set(float64(c.hitCount) / float64(total))
	}
}
