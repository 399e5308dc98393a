package catalog

import "context"

// Repository provides read access to the content catalog. The progression
// engine only ever reads catalog rows; all writes happen through authoring
// tooling outside of this module.
type Repository interface {
	// GetCourse returns a course by ID.
	GetCourse(ctx context.Context, courseID string) (*Course, error)

	// GetAssessment returns an assessment by ID, scoped to a course.
	// Returns shared.ErrAssessmentNotFound when the assessment exists but
	// belongs to another course.
	GetAssessment(ctx context.Context, courseID, assessmentID string) (*Assessment, error)

	// ListTrackCourses returns all courses of a track ordered by
	// order_in_track.
	ListTrackCourses(ctx context.Context, trackID string) ([]Course, error)

	// GetCourseByTag returns the course carrying a milestone tag, or
	// shared.ErrCourseNotFound when no course does. Tags are unique
	// across the catalog.
	GetCourseByTag(ctx context.Context, tag MilestoneTag) (*Course, error)

	// GetTrack returns a track by ID.
	GetTrack(ctx context.Context, trackID string) (*Track, error)

	// ListPaths returns all learning paths.
	ListPaths(ctx context.Context) ([]LearningPath, error)

	// ListPathTracks returns all tracks of a learning path.
	ListPathTracks(ctx context.Context, pathID string) ([]Track, error)
}
