// Package catalog contains the learning content hierarchy: learning paths,
// tracks, courses, and their graded assessments. The catalog is read-only for
// the progression engine; authoring happens elsewhere.
package catalog

import (
	"sort"
	"strings"

	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// AssessmentType identifies the graded component a score feeds into.
type AssessmentType string

const (
	AssessmentTheory     AssessmentType = "theory"
	AssessmentPractice   AssessmentType = "practice"
	AssessmentProject    AssessmentType = "project"
	AssessmentLiveCoding AssessmentType = "live_coding"
)

// ParseAssessmentType maps catalog type tags to an AssessmentType.
// "Mini Challenge" assessments grade into the project component.
func ParseAssessmentType(s string) (AssessmentType, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, " ", "_"))) {
	case "theory":
		return AssessmentTheory, true
	case "practice":
		return AssessmentPractice, true
	case "project", "mini_challenge":
		return AssessmentProject, true
	case "live_coding":
		return AssessmentLiveCoding, true
	default:
		return "", false
	}
}

// IsValid reports whether the assessment type is one of the four graded
// components.
func (t AssessmentType) IsValid() bool {
	switch t {
	case AssessmentTheory, AssessmentPractice, AssessmentProject, AssessmentLiveCoding:
		return true
	}
	return false
}

// MilestoneTag is a stable, catalog-independent identifier attached to a
// course. Achievement rules match against tags, never against display names,
// so renaming a course cannot break awarding.
type MilestoneTag string

// Known milestone tags used by the achievement rule table.
const (
	TagJSFundamentals       MilestoneTag = "js-fundamentals"
	TagJSFunctions          MilestoneTag = "js-functions"
	TagJSDom                MilestoneTag = "js-dom"
	TagJSDomEvents          MilestoneTag = "js-dom-events"
	TagPHPFundamentals      MilestoneTag = "php-fundamentals"
	TagPHPOOPBasic          MilestoneTag = "php-oop-basic"
	TagHTMLSemantics        MilestoneTag = "html-semantics"
	TagFullstackIntegration MilestoneTag = "fullstack-integration"
)

// LearningPath groups tracks under a broad direction, e.g. "Single
// Programming Path".
type LearningPath struct {
	ID          string
	Name        string
	Description string
}

// Track is an ordered sequence of courses belonging to one learning path.
type Track struct {
	ID            string
	PathID        string
	Name          string
	Description   string
	DurationWeeks int
}

// Course is a gradable unit with a fixed position within its track.
type Course struct {
	ID           string
	TrackID      string
	Name         string
	LevelNumber  int
	DurationDays int
	OrderInTrack int
	MilestoneTag MilestoneTag // empty when the course carries no milestone
}

// Assessment is a typed, weighted graded component of a course.
type Assessment struct {
	ID          string
	CourseID    string
	Type        AssessmentType
	Description string
	Weight      int // percentage of the course total, 0..100
}

// Validate checks assessment invariants.
func (a Assessment) Validate() error {
	if !a.Type.IsValid() {
		return shared.NewDomainError("catalog", "Validate", shared.ErrInvalidInput, "unknown assessment type")
	}
	if a.Weight < 0 || a.Weight > 100 {
		return shared.ErrInvalidWeight
	}
	return nil
}

// ValidateTrackOrder checks that order_in_track values for the given courses
// are unique and contiguous starting at 1. The unlock propagator advances by
// order+1 and relies on this holding; the check runs at catalog load instead
// of being assumed silently at runtime.
func ValidateTrackOrder(courses []Course) error {
	if len(courses) == 0 {
		return nil
	}

	orders := make([]int, len(courses))
	for i, c := range courses {
		orders[i] = c.OrderInTrack
	}
	sort.Ints(orders)

	for i, order := range orders {
		if order != i+1 {
			return shared.ErrTrackOrderBroken
		}
	}
	return nil
}

// NextCourse returns the course following the given order within a track, or
// nil when the course is the last one. Courses must all belong to one track.
func NextCourse(courses []Course, order int) *Course {
	for i := range courses {
		if courses[i].OrderInTrack == order+1 {
			return &courses[i]
		}
	}
	return nil
}
