package achievement

import (
	"context"

	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT RULE TABLE
// Evaluated in order, once per course completion - never for any other
// status transition. Rules match stable milestone tags, not course names.
// ══════════════════════════════════════════════════════════════════════════════

// RuleContext gives rule predicates read access to the learner's progression
// history inside the completion transaction.
type RuleContext interface {
	// CompletedCourse returns the course whose completion triggered the
	// evaluation.
	CompletedCourse() *catalog.Course

	// HasCompletedTag reports whether the learner has completed a course
	// carrying the given milestone tag.
	HasCompletedTag(ctx context.Context, tag catalog.MilestoneTag) (bool, error)

	// CompletedCount returns the learner's completed-course count across
	// all tracks.
	CompletedCount(ctx context.Context) (int, error)

	// TrackProgress returns (completed, total) course counts for the
	// completed course's track.
	TrackProgress(ctx context.Context) (completed, total int, err error)
}

// Rule pairs an achievement name with its awarding predicate.
type Rule struct {
	Name      string
	Satisfied func(ctx context.Context, rc RuleContext) (bool, error)
}

// milestoneRule awards when the just-completed course carries the tag.
func milestoneRule(name string, tag catalog.MilestoneTag) Rule {
	return Rule{
		Name: name,
		Satisfied: func(_ context.Context, rc RuleContext) (bool, error) {
			return rc.CompletedCourse().MilestoneTag == tag, nil
		},
	}
}

// Thresholds for the aggregate rules.
const (
	fiveCoursesThreshold  = 5
	halfwayCompleted      = 6
	halfwayMinTrackLength = 10
)

// Rules returns the full rule table in evaluation order.
func Rules() []Rule {
	return []Rule{
		milestoneRule("JavaScript Novice", catalog.TagJSFundamentals),
		milestoneRule("PHP Beginner", catalog.TagPHPFundamentals),
		milestoneRule("Web Dev Starter", catalog.TagHTMLSemantics),
		milestoneRule("JS Functions Pro", catalog.TagJSFunctions),
		milestoneRule("DOM Manipulator", catalog.TagJSDom),
		milestoneRule("PHP OOP Basics", catalog.TagPHPOOPBasic),
		{
			// Cross-course dependency: completing the full-stack
			// integration course only counts when the DOM & events
			// course is already done.
			Name: "Full-Stack Foundation",
			Satisfied: func(ctx context.Context, rc RuleContext) (bool, error) {
				if rc.CompletedCourse().MilestoneTag != catalog.TagFullstackIntegration {
					return false, nil
				}
				return rc.HasCompletedTag(ctx, catalog.TagJSDomEvents)
			},
		},
		{
			Name: "Five Courses Down!",
			Satisfied: func(ctx context.Context, rc RuleContext) (bool, error) {
				n, err := rc.CompletedCount(ctx)
				if err != nil {
					return false, err
				}
				return n >= fiveCoursesThreshold, nil
			},
		},
		{
			Name: "First Track Completed!",
			Satisfied: func(ctx context.Context, rc RuleContext) (bool, error) {
				completed, total, err := rc.TrackProgress(ctx)
				if err != nil {
					return false, err
				}
				return total > 0 && completed == total, nil
			},
		},
		{
			Name: "Halfway There!",
			Satisfied: func(ctx context.Context, rc RuleContext) (bool, error) {
				completed, total, err := rc.TrackProgress(ctx)
				if err != nil {
					return false, err
				}
				return total >= halfwayMinTrackLength && completed >= halfwayCompleted, nil
			},
		},
	}
}
