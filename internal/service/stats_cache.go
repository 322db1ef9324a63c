package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptvault-api/internal/observability"
	"github.com/noah-isme/promptvault-api/pkg/scoring"
)

const (
	statsCacheVersionKey = "stats:scoring:version"
	defaultStatsCacheTTL = 5 * time.Minute
	localStatsCacheSize  = 256
)

// StatsCache memoises scoring statistics per filter until the next evaluation lands.
// Implementations only log their own failures; a broken cache degrades to recomputation.
//
// Get reports the generation it read from. Set stores under that generation, so stats computed
// before an Invalidate are written where no later Get will look.
type StatsCache interface {
	Get(ctx context.Context, key string) (stats scoring.ScoringStats, generation int64, ok bool)
	Set(ctx context.Context, key string, generation int64, stats scoring.ScoringStats)
	Invalidate(ctx context.Context)
}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStatsCache shares cached statistics between API replicas. Keys embed a version
// counter, so one INCR retires every filter at once.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsCacheTTL
	}
	return &redisStatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "stats_cache").Str("backend", "redis").Logger(),
	}
}

func (c *redisStatsCache) Get(ctx context.Context, key string) (scoring.ScoringStats, int64, bool) {
	version := c.version(ctx)
	cached, err := c.client.Get(ctx, versionedStatsKey(version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read stats cache")
		}
		observability.StatsCacheLookups().WithLabelValues("miss").Inc()
		return scoring.ScoringStats{}, version, false
	}

	var stats scoring.ScoringStats
	if err := json.Unmarshal(cached, &stats); err != nil {
		c.logger.Warn().Err(err).Msg("discarding unreadable stats cache entry")
		observability.StatsCacheLookups().WithLabelValues("miss").Inc()
		return scoring.ScoringStats{}, version, false
	}

	observability.StatsCacheLookups().WithLabelValues("hit").Inc()
	return stats, version, true
}

func (c *redisStatsCache) Set(ctx context.Context, key string, generation int64, stats scoring.ScoringStats) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, versionedStatsKey(generation, key), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store stats cache")
	}
}

func (c *redisStatsCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, statsCacheVersionKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
	}
}

func (c *redisStatsCache) version(ctx context.Context) int64 {
	version, err := c.client.Get(ctx, statsCacheVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Msg("failed to read stats cache version")
	}
	return version
}

func versionedStatsKey(version int64, key string) string {
	return fmt.Sprintf("stats:scoring:v%d:%s", version, key)
}

type localStatsCache struct {
	generation atomic.Int64
	entries    *expirable.LRU[string, scoring.ScoringStats]
}

// NewLocalStatsCache keeps statistics in process memory for single-instance deployments
// without Redis.
func NewLocalStatsCache(ttl time.Duration) StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsCacheTTL
	}
	return &localStatsCache{
		entries: expirable.NewLRU[string, scoring.ScoringStats](localStatsCacheSize, nil, ttl),
	}
}

func (c *localStatsCache) Get(_ context.Context, key string) (scoring.ScoringStats, int64, bool) {
	generation := c.generation.Load()
	stats, ok := c.entries.Get(versionedStatsKey(generation, key))
	result := "miss"
	if ok {
		result = "hit"
	}
	observability.StatsCacheLookups().WithLabelValues(result).Inc()
	return stats, generation, ok
}

func (c *localStatsCache) Set(_ context.Context, key string, generation int64, stats scoring.ScoringStats) {
	if generation != c.generation.Load() {
		return
	}
	c.entries.Add(versionedStatsKey(generation, key), stats)
}

// Invalidate bumps the generation before purging, so a Set racing the purge lands under a
// key that is never read again.
func (c *localStatsCache) Invalidate(context.Context) {
	c.generation.Add(1)
	c.entries.Purge()
}
