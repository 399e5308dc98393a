// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"time"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery identifies the (learner, course) pair.
type GetProgressQuery struct {
	LearnerID string
	CourseID  string
}

// Validate checks the query parameters.
func (q *GetProgressQuery) Validate() error {
	if q.LearnerID == "" || q.CourseID == "" {
		return shared.NewDomainError("learner", "GetProgress", shared.ErrEmptyValue, "learner and course IDs are required")
	}
	return nil
}

// ProgressDTO is the progress record shaped for the presentation layer.
type ProgressDTO struct {
	CourseID        string         `json:"course_id"`
	Status          learner.Status `json:"status"`
	TheoryScore     int            `json:"theory_score"`
	PracticeScore   int            `json:"practice_score"`
	ProjectScore    int            `json:"project_score"`
	LiveCodingScore int            `json:"live_coding_score"`
	TotalScore      int            `json:"total_score"`
	Attempts        int            `json:"attempts"`
	UnlockedAt      *time.Time     `json:"unlocked_at,omitempty"`
	LastAttemptAt   *time.Time     `json:"last_attempt_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// progressToDTO maps the domain record to its DTO.
func progressToDTO(p *learner.CourseProgress) *ProgressDTO {
	return &ProgressDTO{
		CourseID:        p.CourseID,
		Status:          p.Status,
		TheoryScore:     p.TheoryScore,
		PracticeScore:   p.PracticeScore,
		ProjectScore:    p.ProjectScore,
		LiveCodingScore: p.LiveCodingScore,
		TotalScore:      p.TotalScore,
		Attempts:        p.Attempts,
		UnlockedAt:      p.UnlockedAt,
		LastAttemptAt:   p.LastAttemptAt,
		CompletedAt:     p.CompletedAt,
	}
}

// GetProgressHandler handles progress lookups.
type GetProgressHandler struct {
	store port.Store
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(store port.Store) *GetProgressHandler {
	return &GetProgressHandler{store: store}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.store.Progress().Get(ctx, q.LearnerID, q.CourseID)
	if err != nil {
		return nil, err
	}
	return progressToDTO(p), nil
}
