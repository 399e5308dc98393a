// Package saga contains complex business processes that orchestrate
// multiple domain operations in a coordinated manner.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/achievement"
	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION FLOW SAGA
// Flow: Lock Progress Row → Evaluate Completion → Award Course XP →
//
//	Unlock Next Course → Evaluate Achievement Rules → Commit →
//	Publish Events → Notify Session
//
// Everything before the commit runs in one transaction against the locked
// progress row, so unlocking without awarding (or any other partial state)
// is never observable.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionInput identifies the evaluation target.
type CompletionInput struct {
	LearnerID string
	CourseID  string
}

// Validate checks if the input is valid.
func (i CompletionInput) Validate() error {
	if i.LearnerID == "" {
		return errors.New("completion_flow: learner ID is required")
	}
	if i.CourseID == "" {
		return errors.New("completion_flow: course ID is required")
	}
	return nil
}

// AwardedAchievement reports one achievement granted during the flow.
type AwardedAchievement struct {
	Name    string `json:"name"`
	XPBonus int    `json:"xp_bonus"`
}

// CompletionResult is the structured outcome returned to the caller. The
// caller refreshes any session-local XP display from NewXPTotal itself; the
// engine never reaches into ambient session state.
type CompletionResult struct {
	Status            learner.Status       `json:"status"`
	Outcome           learner.Outcome      `json:"outcome"`
	TotalScore        int                  `json:"total_score"`
	Attempts          int                  `json:"attempts"`
	AttemptsRemaining int                  `json:"attempts_remaining"`
	XPAwarded         int                  `json:"xp_awarded"`
	NewXPTotal        int                  `json:"new_xp_total"`
	Achievements      []AwardedAchievement `json:"achievements"`
	UnlockedCourseID  string               `json:"unlocked_course_id,omitempty"`
	Notice            string               `json:"notice"`
}

// HasNewAchievements returns true if any achievements were unlocked.
func (r *CompletionResult) HasNewAchievements() bool {
	return len(r.Achievements) > 0
}

// CompletionFlowSaga orchestrates completion evaluation with its ordered
// side effects: experience award, unlock propagation, and achievement
// evaluation.
type CompletionFlowSaga struct {
	uow     port.UnitOfWork
	events  shared.EventPublisher
	session port.SessionNotifier
	idGen   port.IDGenerator
	policy  learner.ProgressionPolicy
	rules   []achievement.Rule
	logger  *logger.Logger
}

// NewCompletionFlowSaga creates a new completion flow saga.
func NewCompletionFlowSaga(
	uow port.UnitOfWork,
	events shared.EventPublisher,
	session port.SessionNotifier,
	idGen port.IDGenerator,
	policy learner.ProgressionPolicy,
	log *logger.Logger,
) *CompletionFlowSaga {
	return &CompletionFlowSaga{
		uow:     uow,
		events:  events,
		session: session,
		idGen:   idGen,
		policy:  policy,
		rules:   achievement.Rules(),
		logger:  log,
	}
}

// flowState accumulates what happened inside the transaction so events fire
// only after the commit.
type flowState struct {
	result     *CompletionResult
	course     *catalog.Course
	unlockedID string
	xpChanged  bool
}

// Execute runs one completion evaluation. A repeat call on a completed or
// failed course returns shared.ErrAlreadyEvaluated, which callers surface as
// an informational notice, not a failure.
func (s *CompletionFlowSaga) Execute(ctx context.Context, input CompletionInput) (*CompletionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, shared.WrapError("learner", "Evaluate", shared.ErrInvalidInput, "invalid input", err)
	}

	now := time.Now().UTC()
	state := &flowState{}

	err := s.uow.Execute(ctx, func(ctx context.Context, st port.Store) error {
		return s.run(ctx, st, input, now, state)
	})
	if err != nil {
		return nil, err
	}

	s.publishAndNotify(ctx, input, state)
	return state.result, nil
}

// run is the transactional body of the flow.
func (s *CompletionFlowSaga) run(ctx context.Context, st port.Store, input CompletionInput, now time.Time, state *flowState) error {
	progress, err := st.Progress().GetForUpdate(ctx, input.LearnerID, input.CourseID)
	if err != nil {
		return err
	}

	eval, err := progress.Evaluate(s.policy, now)
	if err != nil {
		return err
	}
	if err := st.Progress().Update(ctx, progress); err != nil {
		return err
	}

	result := &CompletionResult{
		Status:            eval.Status,
		Outcome:           eval.Outcome,
		TotalScore:        eval.TotalScore,
		Attempts:          eval.Attempts,
		AttemptsRemaining: eval.AttemptsRemaining,
		Achievements:      []AwardedAchievement{},
	}
	state.result = result

	switch eval.Outcome {
	case learner.OutcomeRetry:
		result.Notice = fmt.Sprintf("Your score: %d. You need %d to pass. Attempts left: %d. Keep trying!",
			eval.TotalScore, s.policy.PassThreshold, eval.AttemptsRemaining)
		return nil
	case learner.OutcomeFailed:
		result.Notice = fmt.Sprintf("Your score: %d. Maximum attempts (%d) reached. This course is now marked as failed.",
			eval.TotalScore, s.policy.MaxAttempts)
		return nil
	}

	// Completed: ordered side effects follow.
	course, err := st.Catalog().GetCourse(ctx, input.CourseID)
	if err != nil {
		return err
	}
	state.course = course

	l, err := st.Learners().GetByID(ctx, input.LearnerID)
	if err != nil {
		return err
	}
	l.AwardXP(s.policy.CompletionXP, now)
	result.XPAwarded = s.policy.CompletionXP.Int()

	unlockedID, err := s.propagateUnlock(ctx, st, input.LearnerID, course, now)
	if err != nil {
		return err
	}
	state.unlockedID = unlockedID
	result.UnlockedCourseID = unlockedID

	if err := s.evaluateAchievements(ctx, st, l, course, now, result); err != nil {
		return err
	}

	if err := st.Learners().UpdateXP(ctx, l.ID, l.XPPoints); err != nil {
		return err
	}
	result.NewXPTotal = l.XPPoints.Int()
	state.xpChanged = true

	result.Notice = fmt.Sprintf("Congratulations! Course passed with %d points. You earned %d XP!",
		eval.TotalScore, result.XPAwarded)
	return nil
}

// propagateUnlock advances the next course in the track from locked to
// unlocked. End of track is a silent no-op.
func (s *CompletionFlowSaga) propagateUnlock(ctx context.Context, st port.Store, learnerID string, course *catalog.Course, now time.Time) (string, error) {
	courses, err := st.Catalog().ListTrackCourses(ctx, course.TrackID)
	if err != nil {
		return "", err
	}
	next := catalog.NextCourse(courses, course.OrderInTrack)
	if next == nil {
		return "", nil
	}

	progress, err := st.Progress().Get(ctx, learnerID, next.ID)
	if errors.Is(err, shared.ErrNotFound) {
		// The lazy track initializer normally creates this row as
		// locked; create it unlocked directly when it is missing.
		p := learner.NewCourseProgress(s.idGen.NewID(), learnerID, next.ID, learner.StatusUnlocked, now)
		if err := st.Progress().Create(ctx, p); err != nil {
			return "", err
		}
		return next.ID, nil
	}
	if err != nil {
		return "", err
	}

	if progress.Status != learner.StatusLocked {
		return "", nil
	}
	if err := progress.Unlock(now); err != nil {
		return "", err
	}
	if err := st.Progress().Update(ctx, progress); err != nil {
		return "", err
	}
	return next.ID, nil
}

// evaluateAchievements runs the rule table in order and awards every
// satisfied achievement exactly once. Bonus XP accumulates on the learner
// entity; the caller persists the total.
func (s *CompletionFlowSaga) evaluateAchievements(ctx context.Context, st port.Store, l *learner.Learner, course *catalog.Course, now time.Time, result *CompletionResult) error {
	rc := &storeRuleContext{store: st, learnerID: l.ID, course: course}

	for _, rule := range s.rules {
		ok, err := rule.Satisfied(ctx, rc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		awarded, bonus, err := s.award(ctx, st, l.ID, rule.Name, now)
		if err != nil {
			return err
		}
		if !awarded {
			continue
		}
		l.AwardXP(bonus, now)
		result.Achievements = append(result.Achievements, AwardedAchievement{
			Name:    rule.Name,
			XPBonus: bonus.Int(),
		})
	}
	return nil
}

// award grants one achievement if the learner does not hold it yet. A name
// missing from the catalog is logged and skipped - it never fails the
// surrounding completion transaction.
func (s *CompletionFlowSaga) award(ctx context.Context, st port.Store, learnerID, name string, now time.Time) (bool, learner.XP, error) {
	ach, err := st.Achievements().GetByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("achievement missing from catalog, skipping",
			logger.String("achievement", name),
		)
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	has, err := st.Achievements().HasAward(ctx, learnerID, ach.ID)
	if err != nil {
		return false, 0, err
	}
	if has {
		return false, 0, nil
	}

	err = st.Achievements().CreateAward(ctx, &achievement.LearnerAchievement{
		ID:            s.idGen.NewID(),
		LearnerID:     learnerID,
		AchievementID: ach.ID,
		UnlockedAt:    now,
	})
	if errors.Is(err, shared.ErrAlreadyExists) {
		// Lost an insert race with a concurrent completion; the other
		// writer's award stands.
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	return true, ach.XPBonus, nil
}

// publishAndNotify fires post-commit side effects. Failures here are logged,
// never propagated - the committed state is already correct.
func (s *CompletionFlowSaga) publishAndNotify(ctx context.Context, input CompletionInput, state *flowState) {
	result := state.result

	switch result.Outcome {
	case learner.OutcomeCompleted:
		trackID := ""
		if state.course != nil {
			trackID = state.course.TrackID
		}
		_ = s.events.Publish(shared.NewCourseCompletedEvent(input.LearnerID, input.CourseID, trackID, result.TotalScore, result.Attempts))
		if result.XPAwarded > 0 {
			_ = s.events.Publish(shared.NewXPGainedEvent(input.LearnerID, result.XPAwarded, result.NewXPTotal, "course_completion"))
		}
		if state.unlockedID != "" {
			_ = s.events.Publish(shared.NewCourseUnlockedEvent(input.LearnerID, state.unlockedID, trackID))
		}
		for _, a := range result.Achievements {
			_ = s.events.Publish(shared.NewAchievementUnlockedEvent(input.LearnerID, a.Name, a.XPBonus))
		}
	case learner.OutcomeFailed:
		_ = s.events.Publish(shared.NewCourseFailedEvent(input.LearnerID, input.CourseID, result.TotalScore, result.Attempts))
	}

	if state.xpChanged && s.session != nil {
		if err := s.session.NotifyXPChanged(ctx, input.LearnerID, result.NewXPTotal); err != nil {
			s.logger.Warn("failed to refresh session XP mirror",
				logger.String("learner_id", input.LearnerID),
				logger.Err(err),
			)
		}
	}
}

// storeRuleContext implements achievement.RuleContext on top of the
// transactional store.
type storeRuleContext struct {
	store     port.Store
	learnerID string
	course    *catalog.Course
}

// CompletedCourse implements achievement.RuleContext.
func (rc *storeRuleContext) CompletedCourse() *catalog.Course {
	return rc.course
}

// HasCompletedTag implements achievement.RuleContext.
func (rc *storeRuleContext) HasCompletedTag(ctx context.Context, tag catalog.MilestoneTag) (bool, error) {
	course, err := rc.store.Catalog().GetCourseByTag(ctx, tag)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	progress, err := rc.store.Progress().Get(ctx, rc.learnerID, course.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return progress.Status == learner.StatusCompleted, nil
}

// CompletedCount implements achievement.RuleContext.
func (rc *storeRuleContext) CompletedCount(ctx context.Context) (int, error) {
	return rc.store.Progress().CountCompleted(ctx, rc.learnerID)
}

// TrackProgress implements achievement.RuleContext.
func (rc *storeRuleContext) TrackProgress(ctx context.Context) (int, int, error) {
	courses, err := rc.store.Catalog().ListTrackCourses(ctx, rc.course.TrackID)
	if err != nil {
		return 0, 0, err
	}
	completed, err := rc.store.Progress().CountCompletedInTrack(ctx, rc.learnerID, rc.course.TrackID)
	if err != nil {
		return 0, 0, err
	}
	return completed, len(courses), nil
}
