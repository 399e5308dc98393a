package command

import (
	"context"
	"errors"
	"time"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// INITIALIZE TRACK PROGRESS COMMAND
// Lazily creates progress rows for every course of a track the first time a
// learner views it: first course by order starts unlocked, the rest locked.
// Rows are never deleted afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// InitializeTrackProgressCommand identifies the learner/track pair.
type InitializeTrackProgressCommand struct {
	LearnerID string
	TrackID   string
}

// Validate checks the command.
func (c *InitializeTrackProgressCommand) Validate() error {
	if c.LearnerID == "" || c.TrackID == "" {
		return shared.NewDomainError("learner", "InitProgress", shared.ErrEmptyValue, "learner and track IDs are required")
	}
	return nil
}

// InitializeTrackProgressHandler handles lazy progress initialization.
type InitializeTrackProgressHandler struct {
	uow    port.UnitOfWork
	idGen  port.IDGenerator
	logger *logger.Logger
}

// NewInitializeTrackProgressHandler creates a new handler.
func NewInitializeTrackProgressHandler(uow port.UnitOfWork, idGen port.IDGenerator, log *logger.Logger) *InitializeTrackProgressHandler {
	return &InitializeTrackProgressHandler{uow: uow, idGen: idGen, logger: log}
}

// Handle creates missing progress rows for the track. Existing rows are left
// untouched, so repeat calls are harmless. A concurrent initializer losing
// the insert race is also fine: the row it wanted already exists.
func (h *InitializeTrackProgressHandler) Handle(ctx context.Context, cmd InitializeTrackProgressCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	created := 0

	err := h.uow.Execute(ctx, func(ctx context.Context, s port.Store) error {
		courses, err := s.Catalog().ListTrackCourses(ctx, cmd.TrackID)
		if err != nil {
			return err
		}
		if len(courses) == 0 {
			return shared.ErrTrackNotFound
		}
		// Gaps here would strand the unlock propagator later, so reject
		// a malformed track before creating anything.
		if err := catalog.ValidateTrackOrder(courses); err != nil {
			return err
		}

		existing, err := s.Progress().ListForTrack(ctx, cmd.LearnerID, cmd.TrackID)
		if err != nil {
			return err
		}

		for _, c := range courses {
			if _, ok := existing[c.ID]; ok {
				continue
			}
			status := learner.StatusLocked
			if c.OrderInTrack == 1 {
				status = learner.StatusUnlocked
			}
			p := learner.NewCourseProgress(h.idGen.NewID(), cmd.LearnerID, c.ID, status, now)
			if err := s.Progress().Create(ctx, p); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					continue
				}
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if created > 0 {
		h.logger.Info("track progress initialized",
			logger.String("learner_id", cmd.LearnerID),
			logger.String("track_id", cmd.TrackID),
			logger.Int("rows_created", created),
		)
	}
	return nil
}
