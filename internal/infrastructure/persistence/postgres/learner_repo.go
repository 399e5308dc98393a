package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearnerRepository implements learner.Repository for PostgreSQL.
type LearnerRepository struct {
	q Querier
}

// NewLearnerRepository creates a new LearnerRepository over a pool or an
// open transaction.
func NewLearnerRepository(q Querier) *LearnerRepository {
	return &LearnerRepository{q: q}
}

const learnerColumns = `id, username, email, password_hash, xp_points, created_at, updated_at`

// Create inserts a new learner.
func (r *LearnerRepository) Create(ctx context.Context, l *learner.Learner) error {
	query := `
		INSERT INTO learners (id, username, email, password_hash, xp_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		l.ID,
		l.Username.String(),
		l.Email,
		l.PasswordHash,
		l.XPPoints.Int(),
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("failed to create learner: %w", err)
	}
	return nil
}

// GetByID returns a learner by internal ID.
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = $1`
	return r.scanLearner(r.q.QueryRow(ctx, query, id))
}

// GetByUsername returns a learner by username.
func (r *LearnerRepository) GetByUsername(ctx context.Context, username string) (*learner.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE username = $1`
	return r.scanLearner(r.q.QueryRow(ctx, query, username))
}

// UpdateXP persists a learner's experience total.
func (r *LearnerRepository) UpdateXP(ctx context.Context, id string, xp learner.XP) error {
	query := `UPDATE learners SET xp_points = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.Exec(ctx, query, xp.Int(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update xp: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrLearnerNotFound
	}
	return nil
}

// TopByXP returns up to limit learners ordered by XP descending, ties broken
// by oldest account first.
func (r *LearnerRepository) TopByXP(ctx context.Context, limit int) ([]learner.Learner, error) {
	query := `
		SELECT ` + learnerColumns + `
		FROM learners
		ORDER BY xp_points DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var learners []learner.Learner
	for rows.Next() {
		var l learner.Learner
		var username string
		var xp int

		err := rows.Scan(&l.ID, &username, &l.Email, &l.PasswordHash, &xp, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learner: %w", err)
		}

		l.Username = learner.Username(username)
		l.XPPoints = learner.XP(xp)
		learners = append(learners, l)
	}
	return learners, rows.Err()
}

// scanLearner scans a single learner from a row.
func (r *LearnerRepository) scanLearner(row pgx.Row) (*learner.Learner, error) {
	var l learner.Learner
	var username string
	var xp int

	err := row.Scan(&l.ID, &username, &l.Email, &l.PasswordHash, &xp, &l.CreatedAt, &l.UpdatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan learner: %w", err)
	}

	l.Username = learner.Username(username)
	l.XPPoints = learner.XP(xp)
	return &l, nil
}
