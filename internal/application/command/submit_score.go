package command

import (
	"context"
	"time"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT COMPONENT SCORE COMMAND (Score Ledger)
// Writes one graded assessment result into the matching component of the
// learner's progress row and recomputes the total, all inside a single
// transaction holding the row lock. A failure rolls the whole update back.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitComponentScoreCommand carries one grading signal. PerformanceRatio is
// the caller-supplied fraction in [0,1]: quiz correct/total, coding tests
// passed/total, or a fixed mock for the remaining assessment types.
type SubmitComponentScoreCommand struct {
	LearnerID        string
	CourseID         string
	AssessmentID     string
	PerformanceRatio float64
}

// Validate checks the command before any write happens.
func (c *SubmitComponentScoreCommand) Validate() error {
	if c.LearnerID == "" || c.CourseID == "" || c.AssessmentID == "" {
		return shared.NewDomainError("learner", "SubmitScore", shared.ErrEmptyValue, "learner, course and assessment IDs are required")
	}
	if c.PerformanceRatio < 0 || c.PerformanceRatio > 1 {
		return shared.ErrInvalidRatio
	}
	return nil
}

// SubmitComponentScoreResult reports the updated ledger state.
type SubmitComponentScoreResult struct {
	PointsEarned int
	Weight       int
	TotalScore   int
	Status       learner.Status
}

// SubmitComponentScoreHandler handles score submissions.
type SubmitComponentScoreHandler struct {
	uow    port.UnitOfWork
	events shared.EventPublisher
	logger *logger.Logger
}

// NewSubmitComponentScoreHandler creates a new handler.
func NewSubmitComponentScoreHandler(uow port.UnitOfWork, events shared.EventPublisher, log *logger.Logger) *SubmitComponentScoreHandler {
	return &SubmitComponentScoreHandler{uow: uow, events: events, logger: log}
}

// Handle executes the command.
func (h *SubmitComponentScoreHandler) Handle(ctx context.Context, cmd SubmitComponentScoreCommand) (*SubmitComponentScoreResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var (
		res     SubmitComponentScoreResult
		started bool
	)

	err := h.uow.Execute(ctx, func(ctx context.Context, s port.Store) error {
		assessment, err := s.Catalog().GetAssessment(ctx, cmd.CourseID, cmd.AssessmentID)
		if err != nil {
			return err
		}

		progress, err := s.Progress().GetForUpdate(ctx, cmd.LearnerID, cmd.CourseID)
		if err != nil {
			return err
		}

		wasUnlocked := progress.Status == learner.StatusUnlocked

		points, err := progress.ApplyComponentScore(assessment, cmd.PerformanceRatio, now)
		if err != nil {
			return err
		}

		if err := s.Progress().Update(ctx, progress); err != nil {
			return err
		}

		res = SubmitComponentScoreResult{
			PointsEarned: points,
			Weight:       assessment.Weight,
			TotalScore:   progress.TotalScore,
			Status:       progress.Status,
		}
		started = wasUnlocked && progress.Status == learner.StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	if started {
		_ = h.events.Publish(shared.NewCourseStartedEvent(cmd.LearnerID, cmd.CourseID))
	}

	h.logger.Debug("component score submitted",
		logger.String("learner_id", cmd.LearnerID),
		logger.String("course_id", cmd.CourseID),
		logger.Int("points", res.PointsEarned),
		logger.Int("total_score", res.TotalScore),
	)

	return &res, nil
}
