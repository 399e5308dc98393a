package query

import (
	"context"
	"errors"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Top learners by experience points. Results go through a short-lived cache
// since the ranking changes slowly and the read is hot.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Limit is the number of entries (default 20, maximum 100).
	Limit int
}

// Validate checks and normalizes the query parameters.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO is one ranked leaderboard row.
type LeaderboardEntryDTO struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
}

// LeaderboardCache caches assembled leaderboard pages.
type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]LeaderboardEntryDTO, bool)
	Set(ctx context.Context, limit int, entries []LeaderboardEntryDTO)
}

// GetLeaderboardHandler handles leaderboard reads.
type GetLeaderboardHandler struct {
	store  port.Store
	cache  LeaderboardCache
	logger *logger.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. The cache is
// optional; a nil cache means every read hits storage.
func NewGetLeaderboardHandler(store port.Store, cache LeaderboardCache, log *logger.Logger) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{store: store, cache: cache, logger: log}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) ([]LeaderboardEntryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if entries, ok := h.cache.Get(ctx, q.Limit); ok {
			return entries, nil
		}
	}

	learners, err := h.store.Learners().TopByXP(ctx, q.Limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntryDTO, 0, len(learners))
	for i, l := range learners {
		entries = append(entries, LeaderboardEntryDTO{
			Rank:     i + 1,
			Username: l.Username.String(),
			XP:       l.XPPoints.Int(),
		})
	}

	if h.cache != nil {
		h.cache.Set(ctx, q.Limit, entries)
	}
	return entries, nil
}
