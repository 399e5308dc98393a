package redis

import (
	"context"
	"errors"

	"github.com/kodefun/kodefun-platform/internal/application/query"
	"github.com/kodefun/kodefun-platform/pkg/circuitbreaker"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements query.LeaderboardCache over Redis. Pages are
// cached per limit; writes that change the ranking invalidate the whole
// prefix. A circuit breaker guards every round trip so a misbehaving Redis
// degrades the read path to storage instead of stalling it.
type LeaderboardCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache, log *logger.Logger) *LeaderboardCache {
	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("cache circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	return &LeaderboardCache{cache: cache, breaker: breaker, logger: log}
}

// Get returns a cached leaderboard page, if present. Cache failures and an
// open circuit count as misses; the read path falls through to storage.
func (c *LeaderboardCache) Get(ctx context.Context, limit int) ([]query.LeaderboardEntryDTO, bool) {
	var entries []query.LeaderboardEntryDTO
	found := false
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		// A miss is a healthy response, not a breaker failure.
		switch err := c.cache.Get(ctx, LeaderboardKey(limit), &entries); err {
		case nil:
			found = true
			return nil
		case ErrCacheMiss:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			c.logger.Warn("leaderboard cache read failed", logger.Err(err))
		}
		return nil, false
	}
	return entries, found
}

// Set stores an assembled leaderboard page.
func (c *LeaderboardCache) Set(ctx context.Context, limit int, entries []query.LeaderboardEntryDTO) {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, LeaderboardKey(limit), entries, TTLLeaderboard)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		c.logger.Warn("leaderboard cache write failed", logger.Err(err))
	}
}

// Invalidate drops all cached leaderboard pages. Called after XP totals
// change.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.DeleteByPattern(ctx, PrefixLeaderboard+"*")
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		c.logger.Warn("leaderboard cache invalidation failed", logger.Err(err))
	}
}
