package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements learner.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	q Querier
}

// NewProgressRepository creates a new ProgressRepository over a pool or an
// open transaction. GetForUpdate only locks anything when q is a transaction.
func NewProgressRepository(q Querier) *ProgressRepository {
	return &ProgressRepository{q: q}
}

const progressColumns = `id, learner_id, course_id, status,
	score_theory, score_practice, score_project, score_live_coding,
	total_score, attempts, unlocked_at, last_attempt_at, completed_at`

// Create inserts a new progress record.
func (r *ProgressRepository) Create(ctx context.Context, p *learner.CourseProgress) error {
	query := `
		INSERT INTO user_progress (
			id, learner_id, course_id, status,
			score_theory, score_practice, score_project, score_live_coding,
			total_score, attempts, unlocked_at, last_attempt_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.LearnerID,
		p.CourseID,
		string(p.Status),
		p.TheoryScore,
		p.PracticeScore,
		p.ProjectScore,
		p.LiveCodingScore,
		p.TotalScore,
		p.Attempts,
		p.UnlockedAt,
		p.LastAttemptAt,
		p.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProgressExists
		}
		return fmt.Errorf("failed to create progress: %w", err)
	}
	return nil
}

// Get returns the progress record for a (learner, course) pair.
func (r *ProgressRepository) Get(ctx context.Context, learnerID, courseID string) (*learner.CourseProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE learner_id = $1 AND course_id = $2
	`
	return r.scanProgress(r.q.QueryRow(ctx, query, learnerID, courseID))
}

// GetForUpdate returns the progress record with a row lock held for the
// remainder of the enclosing transaction.
func (r *ProgressRepository) GetForUpdate(ctx context.Context, learnerID, courseID string) (*learner.CourseProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE learner_id = $1 AND course_id = $2
		FOR UPDATE
	`
	return r.scanProgress(r.q.QueryRow(ctx, query, learnerID, courseID))
}

// Update persists a modified progress record.
func (r *ProgressRepository) Update(ctx context.Context, p *learner.CourseProgress) error {
	query := `
		UPDATE user_progress SET
			status = $1,
			score_theory = $2,
			score_practice = $3,
			score_project = $4,
			score_live_coding = $5,
			total_score = $6,
			attempts = $7,
			unlocked_at = $8,
			last_attempt_at = $9,
			completed_at = $10
		WHERE id = $11
	`

	result, err := r.q.Exec(ctx, query,
		string(p.Status),
		p.TheoryScore,
		p.PracticeScore,
		p.ProjectScore,
		p.LiveCodingScore,
		p.TotalScore,
		p.Attempts,
		p.UnlockedAt,
		p.LastAttemptAt,
		p.CompletedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}
	return nil
}

// ListForTrack returns the learner's progress rows for every course of a
// track, keyed by course ID. Courses the learner has no row for yet are
// simply absent from the map.
func (r *ProgressRepository) ListForTrack(ctx context.Context, learnerID, trackID string) (map[string]*learner.CourseProgress, error) {
	query := `
		SELECT up.id, up.learner_id, up.course_id, up.status,
			   up.score_theory, up.score_practice, up.score_project, up.score_live_coding,
			   up.total_score, up.attempts, up.unlocked_at, up.last_attempt_at, up.completed_at
		FROM user_progress up
		JOIN courses c ON c.id = up.course_id
		WHERE up.learner_id = $1 AND c.track_id = $2
	`

	rows, err := r.q.Query(ctx, query, learnerID, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to list track progress: %w", err)
	}
	defer rows.Close()

	byCourse := make(map[string]*learner.CourseProgress)
	for rows.Next() {
		p, err := r.scanProgressFromRows(rows)
		if err != nil {
			return nil, err
		}
		byCourse[p.CourseID] = p
	}
	return byCourse, rows.Err()
}

// CountCompleted returns the learner's completed-course count across all
// tracks.
func (r *ProgressRepository) CountCompleted(ctx context.Context, learnerID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_progress WHERE learner_id = $1 AND status = 'completed'`,
		learnerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed courses: %w", err)
	}
	return count, nil
}

// CountCompletedInTrack returns the learner's completed-course count within
// one track.
func (r *ProgressRepository) CountCompletedInTrack(ctx context.Context, learnerID, trackID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_progress up
		JOIN courses c ON c.id = up.course_id
		WHERE up.learner_id = $1 AND c.track_id = $2 AND up.status = 'completed'
	`

	var count int
	if err := r.q.QueryRow(ctx, query, learnerID, trackID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed courses in track: %w", err)
	}
	return count, nil
}

// scanProgress scans a single progress record from a row.
func (r *ProgressRepository) scanProgress(row pgx.Row) (*learner.CourseProgress, error) {
	var p learner.CourseProgress
	var status string

	err := row.Scan(
		&p.ID,
		&p.LearnerID,
		&p.CourseID,
		&status,
		&p.TheoryScore,
		&p.PracticeScore,
		&p.ProjectScore,
		&p.LiveCodingScore,
		&p.TotalScore,
		&p.Attempts,
		&p.UnlockedAt,
		&p.LastAttemptAt,
		&p.CompletedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	p.Status = learner.Status(status)
	return &p, nil
}

// scanProgressFromRows scans a progress record during rows iteration.
func (r *ProgressRepository) scanProgressFromRows(rows pgx.Rows) (*learner.CourseProgress, error) {
	var p learner.CourseProgress
	var status string

	err := rows.Scan(
		&p.ID,
		&p.LearnerID,
		&p.CourseID,
		&status,
		&p.TheoryScore,
		&p.PracticeScore,
		&p.ProjectScore,
		&p.LiveCodingScore,
		&p.TotalScore,
		&p.Attempts,
		&p.UnlockedAt,
		&p.LastAttemptAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	p.Status = learner.Status(status)
	return &p, nil
}
