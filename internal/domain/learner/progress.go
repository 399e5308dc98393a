package learner

import (
	"fmt"
	"math"
	"time"

	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION STATE MACHINE
// locked → unlocked → in_progress → {completed | failed}
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a learner's attempt at a course.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusUnlocked   Status = "unlocked"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status allows no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AcceptsScores reports whether component score submissions are allowed.
// Only unlocked and in-progress courses accept new scores.
func (s Status) AcceptsScores() bool {
	return s == StatusUnlocked || s == StatusInProgress
}

// statusRank orders statuses along the forward-only lifecycle.
var statusRank = map[Status]int{
	StatusLocked:     0,
	StatusUnlocked:   1,
	StatusInProgress: 2,
	StatusCompleted:  3,
	StatusFailed:     3,
}

// CanTransition reports whether moving from s to next is a forward move.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// ProgressionPolicy holds the pass/retry policy. The platform currently runs
// one global policy; per-course overrides are the obvious extension point.
type ProgressionPolicy struct {
	// PassThreshold is the minimum total score to complete a course.
	PassThreshold int

	// MaxAttempts is the number of completion evaluations allowed before
	// the course fails terminally.
	MaxAttempts int

	// CompletionXP is the experience bonus for completing a course.
	CompletionXP XP
}

// DefaultPolicy returns the platform-wide progression policy.
func DefaultPolicy() ProgressionPolicy {
	return ProgressionPolicy{
		PassThreshold: 70,
		MaxAttempts:   3,
		CompletionXP:  100,
	}
}

// CourseProgress is the per-(learner, course) progression record. It is
// created lazily when the learner first views a track and never deleted.
type CourseProgress struct {
	ID        string
	LearnerID string
	CourseID  string
	Status    Status

	// Component scores, one per assessment type. Each is bounded by the
	// weight of its assessment.
	TheoryScore     int
	PracticeScore   int
	ProjectScore    int
	LiveCodingScore int

	// TotalScore always equals the sum of the four components.
	TotalScore int

	// Attempts counts completion evaluations, never score submissions.
	Attempts int

	UnlockedAt    *time.Time
	LastAttemptAt *time.Time
	CompletedAt   *time.Time
}

// NewCourseProgress creates a fresh progress record in the given status.
func NewCourseProgress(id, learnerID, courseID string, status Status, now time.Time) *CourseProgress {
	p := &CourseProgress{
		ID:        id,
		LearnerID: learnerID,
		CourseID:  courseID,
		Status:    status,
	}
	if status == StatusUnlocked {
		t := now
		p.UnlockedAt = &t
	}
	return p
}

// componentSum recomputes the total from the four components.
func (p *CourseProgress) componentSum() int {
	return p.TheoryScore + p.PracticeScore + p.ProjectScore + p.LiveCodingScore
}

// CheckInvariant verifies total_score == sum of components.
func (p *CourseProgress) CheckInvariant() error {
	if p.TotalScore != p.componentSum() {
		return shared.NewDomainError("learner", "Invariant", shared.ErrInvalidState,
			fmt.Sprintf("total_score %d != component sum %d", p.TotalScore, p.componentSum()))
	}
	return nil
}

// ═════════════════════════════════════════════════════════════════════════════
// SCORE LEDGER
// ═════════════════════════════════════════════════════════════════════════════

// ComponentPoints converts a performance ratio into points for a weighted
// assessment: round(ratio * weight).
func ComponentPoints(ratio float64, weight int) int {
	return int(math.Round(ratio * float64(weight)))
}

// ApplyComponentScore writes the graded result of one assessment into the
// matching component field and recomputes the total. The ratio is the
// caller-supplied fraction in [0,1] (quiz correct/total, coding tests
// passed/total, or the mocked fixed ratio for the remaining types).
//
// The first graded activity on an unlocked course marks the attempt as begun
// (unlocked → in_progress). Terminal and locked courses reject submissions.
func (p *CourseProgress) ApplyComponentScore(a *catalog.Assessment, ratio float64, now time.Time) (int, error) {
	if ratio < 0 || ratio > 1 {
		return 0, shared.ErrInvalidRatio
	}
	if p.Status == StatusLocked {
		return 0, shared.ErrCourseLocked
	}
	if !p.Status.AcceptsScores() {
		return 0, shared.ErrCourseFinished
	}

	points := ComponentPoints(ratio, a.Weight)

	switch a.Type {
	case catalog.AssessmentTheory:
		p.TheoryScore = points
	case catalog.AssessmentPractice:
		p.PracticeScore = points
	case catalog.AssessmentProject:
		p.ProjectScore = points
	case catalog.AssessmentLiveCoding:
		p.LiveCodingScore = points
	default:
		return 0, shared.NewDomainError("learner", "SubmitScore", shared.ErrInvalidInput,
			fmt.Sprintf("unknown assessment type %q", a.Type))
	}

	p.TotalScore = p.componentSum()

	if p.Status == StatusUnlocked {
		p.Status = StatusInProgress
	}
	t := now
	p.LastAttemptAt = &t

	return points, nil
}

// ═════════════════════════════════════════════════════════════════════════════
// COMPLETION EVALUATION
// ═════════════════════════════════════════════════════════════════════════════

// Outcome is the result class of a completion evaluation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"
)

// EvaluationResult describes what a completion evaluation decided.
type EvaluationResult struct {
	Outcome           Outcome
	Status            Status
	TotalScore        int
	Attempts          int
	AttemptsRemaining int
}

// Evaluate runs one completion evaluation against the policy. Attempts and
// last_attempt_at advance on every call regardless of outcome. Terminal
// statuses reject the call; the caller surfaces that as an informational
// notice rather than a failure.
func (p *CourseProgress) Evaluate(policy ProgressionPolicy, now time.Time) (*EvaluationResult, error) {
	if p.Status.IsTerminal() {
		return nil, shared.ErrAlreadyEvaluated
	}

	p.Attempts++
	t := now
	p.LastAttemptAt = &t

	res := &EvaluationResult{
		TotalScore: p.TotalScore,
		Attempts:   p.Attempts,
	}

	switch {
	case p.TotalScore >= policy.PassThreshold && p.Attempts <= policy.MaxAttempts:
		p.Status = StatusCompleted
		p.CompletedAt = &t
		res.Outcome = OutcomeCompleted
	case p.Attempts <= policy.MaxAttempts:
		p.Status = StatusInProgress
		res.Outcome = OutcomeRetry
		res.AttemptsRemaining = policy.MaxAttempts - p.Attempts
	default:
		// Attempt cap exhausted: terminal failure regardless of score.
		p.Status = StatusFailed
		res.Outcome = OutcomeFailed
	}

	res.Status = p.Status
	return res, nil
}

// Unlock transitions a locked progress record to unlocked. Used by the
// unlock propagator when the previous course completes.
func (p *CourseProgress) Unlock(now time.Time) error {
	if p.Status != StatusLocked {
		return shared.NewDomainError("learner", "Unlock", shared.ErrStateTransition,
			fmt.Sprintf("cannot unlock course in status %q", p.Status))
	}
	p.Status = StatusUnlocked
	t := now
	p.UnlockedAt = &t
	return nil
}
