// Package achievement contains the achievement catalog and the rule table
// evaluated after every course completion.
package achievement

import (
	"time"

	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// Achievement is a named, one-time-awardable bonus.
type Achievement struct {
	ID          string
	Name        string // unique within the catalog
	Description string
	Criteria    string
	XPBonus     learner.XP
}

// Validate checks achievement invariants.
func (a *Achievement) Validate() error {
	if a.Name == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrEmptyValue, "achievement name is required")
	}
	if a.XPBonus < 0 {
		return shared.NewDomainError("achievement", "Validate", shared.ErrNegativeValue, "negative XP bonus")
	}
	return nil
}

// LearnerAchievement records that a learner holds an achievement. Its
// existence is the idempotence guard: one row per (learner, achievement),
// enforced by a uniqueness constraint in storage.
type LearnerAchievement struct {
	ID            string
	LearnerID     string
	AchievementID string
	UnlockedAt    time.Time
}
