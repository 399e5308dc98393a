package learner

import "context"

// Repository persists learners.
type Repository interface {
	// Create inserts a new learner. Returns shared.ErrLearnerAlreadyExists
	// on a username or email collision.
	Create(ctx context.Context, l *Learner) error

	// GetByID returns a learner by ID.
	GetByID(ctx context.Context, id string) (*Learner, error)

	// GetByUsername returns a learner by username.
	GetByUsername(ctx context.Context, username string) (*Learner, error)

	// UpdateXP persists a learner's experience total.
	UpdateXP(ctx context.Context, id string, xp XP) error

	// TopByXP returns up to limit learners ordered by XP descending,
	// ties broken by oldest account first.
	TopByXP(ctx context.Context, limit int) ([]Learner, error)
}

// ProgressRepository persists per-(learner, course) progression records.
type ProgressRepository interface {
	// Create inserts a new progress record. Returns
	// shared.ErrProgressExists when the (learner, course) pair already
	// has one.
	Create(ctx context.Context, p *CourseProgress) error

	// Get returns the progress record for a (learner, course) pair.
	Get(ctx context.Context, learnerID, courseID string) (*CourseProgress, error)

	// GetForUpdate returns the progress record with a row-level lock held
	// for the remainder of the enclosing transaction. This serializes the
	// submit → evaluate → award sequence per (learner, course).
	GetForUpdate(ctx context.Context, learnerID, courseID string) (*CourseProgress, error)

	// Update persists a modified progress record.
	Update(ctx context.Context, p *CourseProgress) error

	// ListForTrack returns the learner's progress rows for every course of
	// a track, keyed by course ID.
	ListForTrack(ctx context.Context, learnerID, trackID string) (map[string]*CourseProgress, error)

	// CountCompleted returns the learner's completed-course count across
	// all tracks.
	CountCompleted(ctx context.Context, learnerID string) (int, error)

	// CountCompletedInTrack returns the learner's completed-course count
	// within one track.
	CountCompletedInTrack(ctx context.Context, learnerID, trackID string) (int, error)
}
