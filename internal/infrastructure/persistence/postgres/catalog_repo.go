package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Repository for PostgreSQL.
type CatalogRepository struct {
	q Querier
}

// NewCatalogRepository creates a new CatalogRepository over a pool or an
// open transaction.
func NewCatalogRepository(q Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

const courseColumns = `id, track_id, name, level_number, duration_days, order_in_track, COALESCE(milestone_tag, '')`

// GetCourse returns a course by ID.
func (r *CatalogRepository) GetCourse(ctx context.Context, courseID string) (*catalog.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	return r.scanCourse(r.q.QueryRow(ctx, query, courseID))
}

// GetCourseByTag returns the course carrying a milestone tag.
func (r *CatalogRepository) GetCourseByTag(ctx context.Context, tag catalog.MilestoneTag) (*catalog.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE milestone_tag = $1`
	return r.scanCourse(r.q.QueryRow(ctx, query, string(tag)))
}

// GetAssessment returns an assessment by ID, scoped to a course.
func (r *CatalogRepository) GetAssessment(ctx context.Context, courseID, assessmentID string) (*catalog.Assessment, error) {
	query := `
		SELECT id, course_id, assessment_type, description, weight_percentage
		FROM assessments
		WHERE id = $1 AND course_id = $2
	`

	var a catalog.Assessment
	var typ string

	err := r.q.QueryRow(ctx, query, assessmentID, courseID).Scan(
		&a.ID, &a.CourseID, &typ, &a.Description, &a.Weight,
	)
	if IsNoRows(err) {
		return nil, shared.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assessment: %w", err)
	}

	a.Type = catalog.AssessmentType(typ)
	return &a, nil
}

// ListTrackCourses returns all courses of a track ordered by order_in_track.
func (r *CatalogRepository) ListTrackCourses(ctx context.Context, trackID string) ([]catalog.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE track_id = $1
		ORDER BY order_in_track ASC
	`

	rows, err := r.q.Query(ctx, query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to list track courses: %w", err)
	}
	defer rows.Close()

	var courses []catalog.Course
	for rows.Next() {
		var c catalog.Course
		var tag string

		err := rows.Scan(&c.ID, &c.TrackID, &c.Name, &c.LevelNumber, &c.DurationDays, &c.OrderInTrack, &tag)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}

		c.MilestoneTag = catalog.MilestoneTag(tag)
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetTrack returns a track by ID.
func (r *CatalogRepository) GetTrack(ctx context.Context, trackID string) (*catalog.Track, error) {
	query := `
		SELECT id, path_id, name, description, duration_weeks
		FROM tracks
		WHERE id = $1
	`

	var t catalog.Track
	err := r.q.QueryRow(ctx, query, trackID).Scan(
		&t.ID, &t.PathID, &t.Name, &t.Description, &t.DurationWeeks,
	)
	if IsNoRows(err) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return &t, nil
}

// ListPaths returns all learning paths.
func (r *CatalogRepository) ListPaths(ctx context.Context) ([]catalog.LearningPath, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, description FROM learning_paths ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list learning paths: %w", err)
	}
	defer rows.Close()

	var paths []catalog.LearningPath
	for rows.Next() {
		var p catalog.LearningPath
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan learning path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListPathTracks returns all tracks of a learning path.
func (r *CatalogRepository) ListPathTracks(ctx context.Context, pathID string) ([]catalog.Track, error) {
	query := `
		SELECT id, path_id, name, description, duration_weeks
		FROM tracks
		WHERE path_id = $1
		ORDER BY name ASC
	`

	rows, err := r.q.Query(ctx, query, pathID)
	if err != nil {
		return nil, fmt.Errorf("failed to list path tracks: %w", err)
	}
	defer rows.Close()

	var tracks []catalog.Track
	for rows.Next() {
		var t catalog.Track
		if err := rows.Scan(&t.ID, &t.PathID, &t.Name, &t.Description, &t.DurationWeeks); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// scanCourse scans a single course from a row.
func (r *CatalogRepository) scanCourse(row pgx.Row) (*catalog.Course, error) {
	var c catalog.Course
	var tag string

	err := row.Scan(&c.ID, &c.TrackID, &c.Name, &c.LevelNumber, &c.DurationDays, &c.OrderInTrack, &tag)
	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	c.MilestoneTag = catalog.MilestoneTag(tag)
	return &c, nil
}
