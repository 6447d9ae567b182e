package cache

import (
	"context"
	"time"

	"sectorview/database/types"
)

// SectorCache keeps the per-universe sector summaries in Redis so the
// dashboard read path skips the aggregation query between refreshes. A
// nil Redis client degrades every lookup to a miss.
type SectorCache struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewSectorCache(redis *RedisClient, ttl time.Duration) *SectorCache {
	return &SectorCache{redis: redis, ttl: ttl}
}

func sectorKey(universeType string) string {
	return "sectorview:summaries:" + universeType
}

// Get returns the cached summaries for a universe, or ok=false on a
// miss or when caching is disabled.
func (c *SectorCache) Get(ctx context.Context, universeType string) ([]types.SectorSummary, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	var summaries []types.SectorSummary
	if err := c.redis.Get(ctx, sectorKey(universeType), &summaries); err != nil {
		return nil, false
	}
	return summaries, true
}

// Put replaces the cached summaries for a universe. Failures are
// swallowed: the cache is an optimization, not a store.
func (c *SectorCache) Put(ctx context.Context, universeType string, summaries []types.SectorSummary) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Set(ctx, sectorKey(universeType), summaries, c.ttl)
}

// Invalidate drops the cached summaries for a universe
func (c *SectorCache) Invalidate(ctx context.Context, universeType string) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Delete(ctx, sectorKey(universeType))
}
