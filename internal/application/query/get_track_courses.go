package query

import (
	"context"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TRACK COURSES QUERY
// Returns a track's course list joined with the learner's progress. The HTTP
// handler runs the lazy progress initializer before this query, so every
// course comes back with a status.
// ══════════════════════════════════════════════════════════════════════════════

// GetTrackCoursesQuery identifies the learner/track pair.
type GetTrackCoursesQuery struct {
	LearnerID string
	TrackID   string
}

// Validate checks the query parameters.
func (q *GetTrackCoursesQuery) Validate() error {
	if q.LearnerID == "" || q.TrackID == "" {
		return shared.NewDomainError("catalog", "GetTrackCourses", shared.ErrEmptyValue, "learner and track IDs are required")
	}
	return nil
}

// TrackCourseDTO is one course row with the learner's progress attached.
type TrackCourseDTO struct {
	CourseID     string         `json:"course_id"`
	Name         string         `json:"name"`
	LevelNumber  int            `json:"level_number"`
	OrderInTrack int            `json:"order_in_track"`
	DurationDays int            `json:"duration_days"`
	Status       learner.Status `json:"status"`
	TotalScore   int            `json:"total_score"`
}

// GetTrackCoursesResult contains the track header and its course rows.
type GetTrackCoursesResult struct {
	TrackID   string           `json:"track_id"`
	TrackName string           `json:"track_name"`
	Courses   []TrackCourseDTO `json:"courses"`
}

// GetTrackCoursesHandler handles track course listings.
type GetTrackCoursesHandler struct {
	store port.Store
}

// NewGetTrackCoursesHandler creates a new GetTrackCoursesHandler.
func NewGetTrackCoursesHandler(store port.Store) *GetTrackCoursesHandler {
	return &GetTrackCoursesHandler{store: store}
}

// Handle executes the query.
func (h *GetTrackCoursesHandler) Handle(ctx context.Context, q GetTrackCoursesQuery) (*GetTrackCoursesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	track, err := h.store.Catalog().GetTrack(ctx, q.TrackID)
	if err != nil {
		return nil, err
	}

	courses, err := h.store.Catalog().ListTrackCourses(ctx, q.TrackID)
	if err != nil {
		return nil, err
	}

	progress, err := h.store.Progress().ListForTrack(ctx, q.LearnerID, q.TrackID)
	if err != nil {
		return nil, err
	}

	result := &GetTrackCoursesResult{
		TrackID:   track.ID,
		TrackName: track.Name,
		Courses:   make([]TrackCourseDTO, 0, len(courses)),
	}
	for _, c := range courses {
		dto := TrackCourseDTO{
			CourseID:     c.ID,
			Name:         c.Name,
			LevelNumber:  c.LevelNumber,
			OrderInTrack: c.OrderInTrack,
			DurationDays: c.DurationDays,
			Status:       learner.StatusLocked,
		}
		if p, ok := progress[c.ID]; ok {
			dto.Status = p.Status
			dto.TotalScore = p.TotalScore
		}
		result.Courses = append(result.Courses, dto)
	}
	return result, nil
}
