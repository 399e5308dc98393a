package query

import (
	"context"
	"time"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST LEARNER ACHIEVEMENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListAchievementsQuery identifies the learner.
type ListAchievementsQuery struct {
	LearnerID string
}

// Validate checks the query parameters.
func (q *ListAchievementsQuery) Validate() error {
	if q.LearnerID == "" {
		return shared.NewDomainError("achievement", "List", shared.ErrEmptyValue, "learner ID is required")
	}
	return nil
}

// AchievementDTO is one unlocked achievement shaped for display.
type AchievementDTO struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	XPBonus     int       `json:"xp_bonus"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// ListAchievementsHandler handles achievement listings.
type ListAchievementsHandler struct {
	store port.Store
}

// NewListAchievementsHandler creates a new ListAchievementsHandler.
func NewListAchievementsHandler(store port.Store) *ListAchievementsHandler {
	return &ListAchievementsHandler{store: store}
}

// Handle executes the query.
func (h *ListAchievementsHandler) Handle(ctx context.Context, q ListAchievementsQuery) ([]AchievementDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	awarded, err := h.store.Achievements().ListForLearner(ctx, q.LearnerID)
	if err != nil {
		return nil, err
	}

	dtos := make([]AchievementDTO, 0, len(awarded))
	for _, a := range awarded {
		dtos = append(dtos, AchievementDTO{
			Name:        a.Name,
			Description: a.Description,
			XPBonus:     a.XPBonus.Int(),
			UnlockedAt:  a.UnlockedAt,
		})
	}
	return dtos, nil
}
