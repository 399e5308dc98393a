package achievement

import (
	"context"
	"time"
)

// Repository persists the achievement catalog and per-learner awards.
type Repository interface {
	// GetByName returns an achievement from the catalog by its unique
	// name.
	GetByName(ctx context.Context, name string) (*Achievement, error)

	// HasAward reports whether the learner already holds the achievement.
	HasAward(ctx context.Context, learnerID, achievementID string) (bool, error)

	// CreateAward inserts a LearnerAchievement row. Returns
	// shared.ErrAlreadyAwarded when the uniqueness constraint fires,
	// which callers treat as a no-op.
	CreateAward(ctx context.Context, award *LearnerAchievement) error

	// ListForLearner returns the learner's achievements with unlock
	// timestamps, newest first.
	ListForLearner(ctx context.Context, learnerID string) ([]AwardedAchievement, error)
}

// AwardedAchievement is a catalog entry joined with its unlock time.
type AwardedAchievement struct {
	Achievement
	UnlockedAt time.Time
}
