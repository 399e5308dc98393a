// Package jobs contains implementations of scheduled background jobs for the
// KodeFun platform.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// WarmLeaderboardJob rebuilds the cached leaderboard pages so that the
// first request after a cache expiry never pays the ranking query. The
// leaderboard page is the most-viewed screen of the platform; keeping it
// warm shifts the database load off the request path.
type WarmLeaderboardJob struct {
	store  port.Store
	cache  query.LeaderboardCache
	logger *slog.Logger
	config WarmLeaderboardConfig
}

// WarmLeaderboardConfig contains configuration for the warm job.
type WarmLeaderboardConfig struct {
	// PageSizes are the leaderboard page sizes to pre-build. These should
	// match the limits the frontend actually requests.
	PageSizes []int

	// Timeout is the maximum duration for one warm run.
	Timeout time.Duration
}

// DefaultWarmLeaderboardConfig returns sensible defaults.
func DefaultWarmLeaderboardConfig() WarmLeaderboardConfig {
	return WarmLeaderboardConfig{
		PageSizes: []int{10, 20, 100},
		Timeout:   30 * time.Second,
	}
}

// NewWarmLeaderboardJob creates a new warm leaderboard job.
func NewWarmLeaderboardJob(store port.Store, cache query.LeaderboardCache, logger *slog.Logger, config WarmLeaderboardConfig) *WarmLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.PageSizes) == 0 {
		config.PageSizes = DefaultWarmLeaderboardConfig().PageSizes
	}
	return &WarmLeaderboardJob{
		store:  store,
		cache:  cache,
		logger: logger,
		config: config,
	}
}

// Name returns the unique job name.
func (j *WarmLeaderboardJob) Name() string {
	return "warm_leaderboard"
}

// Description returns a human-readable description.
func (j *WarmLeaderboardJob) Description() string {
	return "Pre-builds cached leaderboard pages from the XP ranking"
}

// Run rebuilds every configured page size. The largest page is fetched
// once and sliced for the smaller ones.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	maxSize := 0
	for _, size := range j.config.PageSizes {
		if size > maxSize {
			maxSize = size
		}
	}

	learners, err := j.store.Learners().TopByXP(ctx, maxSize)
	if err != nil {
		return fmt.Errorf("warm_leaderboard: fetch ranking: %w", err)
	}

	entries := make([]query.LeaderboardEntryDTO, 0, len(learners))
	for i, l := range learners {
		entries = append(entries, query.LeaderboardEntryDTO{
			Rank:     i + 1,
			Username: l.Username.String(),
			XP:       l.XPPoints.Int(),
		})
	}

	for _, size := range j.config.PageSizes {
		page := entries
		if size < len(entries) {
			page = entries[:size]
		}
		j.cache.Set(ctx, size, page)
	}

	j.logger.Debug("leaderboard cache warmed",
		"entries", len(entries),
		"pages", len(j.config.PageSizes),
	)
	return nil
}
