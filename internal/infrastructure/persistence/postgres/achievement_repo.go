package postgres

import (
	"context"
	"fmt"

	"github.com/kodefun/kodefun-platform/internal/domain/achievement"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	q Querier
}

// NewAchievementRepository creates a new AchievementRepository over a pool or
// an open transaction.
func NewAchievementRepository(q Querier) *AchievementRepository {
	return &AchievementRepository{q: q}
}

// GetByName returns an achievement from the catalog by its unique name.
func (r *AchievementRepository) GetByName(ctx context.Context, name string) (*achievement.Achievement, error) {
	query := `
		SELECT id, name, description, criteria, xp_bonus
		FROM achievements
		WHERE name = $1
	`

	var a achievement.Achievement
	var bonus int

	err := r.q.QueryRow(ctx, query, name).Scan(&a.ID, &a.Name, &a.Description, &a.Criteria, &bonus)
	if IsNoRows(err) {
		return nil, shared.ErrAchievementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan achievement: %w", err)
	}

	a.XPBonus = learner.XP(bonus)
	return &a, nil
}

// HasAward reports whether the learner already holds the achievement.
func (r *AchievementRepository) HasAward(ctx context.Context, learnerID, achievementID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_achievements WHERE learner_id = $1 AND achievement_id = $2)`,
		learnerID,
		achievementID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check award: %w", err)
	}
	return exists, nil
}

// CreateAward inserts an award row. The unique constraint on
// (learner_id, achievement_id) makes awarding idempotent under races.
func (r *AchievementRepository) CreateAward(ctx context.Context, award *achievement.LearnerAchievement) error {
	query := `
		INSERT INTO user_achievements (id, learner_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.Exec(ctx, query, award.ID, award.LearnerID, award.AchievementID, award.UnlockedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyAwarded
		}
		return fmt.Errorf("failed to create award: %w", err)
	}
	return nil
}

// ListForLearner returns the learner's achievements with unlock timestamps,
// newest first.
func (r *AchievementRepository) ListForLearner(ctx context.Context, learnerID string) ([]achievement.AwardedAchievement, error) {
	query := `
		SELECT a.id, a.name, a.description, a.criteria, a.xp_bonus, ua.unlocked_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.learner_id = $1
		ORDER BY ua.unlocked_at DESC
	`

	rows, err := r.q.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var awarded []achievement.AwardedAchievement
	for rows.Next() {
		var aa achievement.AwardedAchievement
		var bonus int

		err := rows.Scan(&aa.ID, &aa.Name, &aa.Description, &aa.Criteria, &bonus, &aa.UnlockedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan awarded achievement: %w", err)
		}

		aa.XPBonus = learner.XP(bonus)
		awarded = append(awarded, aa)
	}
	return awarded, rows.Err()
}
