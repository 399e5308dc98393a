package achievement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
)

// fakeRuleContext is a canned-answer RuleContext for predicate tests.
type fakeRuleContext struct {
	course         *catalog.Course
	completedTags  map[catalog.MilestoneTag]bool
	completedCount int
	trackCompleted int
	trackTotal     int
}

func (f *fakeRuleContext) CompletedCourse() *catalog.Course { return f.course }

func (f *fakeRuleContext) HasCompletedTag(_ context.Context, tag catalog.MilestoneTag) (bool, error) {
	return f.completedTags[tag], nil
}

func (f *fakeRuleContext) CompletedCount(_ context.Context) (int, error) {
	return f.completedCount, nil
}

func (f *fakeRuleContext) TrackProgress(_ context.Context) (int, int, error) {
	return f.trackCompleted, f.trackTotal, nil
}

func ruleByName(t *testing.T, name string) Rule {
	t.Helper()
	for _, r := range Rules() {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("rule %q not in table", name)
	return Rule{}
}

func courseWithTag(tag catalog.MilestoneTag) *catalog.Course {
	return &catalog.Course{ID: "c-1", TrackID: "t-1", Name: "Some Course", MilestoneTag: tag}
}

func TestMilestoneRules(t *testing.T) {
	tests := []struct {
		rule string
		tag  catalog.MilestoneTag
	}{
		{"JavaScript Novice", catalog.TagJSFundamentals},
		{"PHP Beginner", catalog.TagPHPFundamentals},
		{"Web Dev Starter", catalog.TagHTMLSemantics},
		{"JS Functions Pro", catalog.TagJSFunctions},
		{"DOM Manipulator", catalog.TagJSDom},
		{"PHP OOP Basics", catalog.TagPHPOOPBasic},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			rule := ruleByName(t, tt.rule)

			ok, err := rule.Satisfied(ctx, &fakeRuleContext{course: courseWithTag(tt.tag)})
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = rule.Satisfied(ctx, &fakeRuleContext{course: courseWithTag("unrelated-tag")})
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = rule.Satisfied(ctx, &fakeRuleContext{course: courseWithTag("")})
			require.NoError(t, err)
			assert.False(t, ok, "untagged courses never match milestone rules")
		})
	}
}

func TestFullStackFoundation(t *testing.T) {
	ctx := context.Background()
	rule := ruleByName(t, "Full-Stack Foundation")

	t.Run("needs both the integration course and the DOM events course", func(t *testing.T) {
		rc := &fakeRuleContext{
			course:        courseWithTag(catalog.TagFullstackIntegration),
			completedTags: map[catalog.MilestoneTag]bool{catalog.TagJSDomEvents: true},
		}
		ok, err := rule.Satisfied(ctx, rc)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("integration course alone is not enough", func(t *testing.T) {
		rc := &fakeRuleContext{
			course:        courseWithTag(catalog.TagFullstackIntegration),
			completedTags: map[catalog.MilestoneTag]bool{},
		}
		ok, err := rule.Satisfied(ctx, rc)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other courses never trigger it", func(t *testing.T) {
		rc := &fakeRuleContext{
			course:        courseWithTag(catalog.TagJSDomEvents),
			completedTags: map[catalog.MilestoneTag]bool{catalog.TagJSDomEvents: true},
		}
		ok, err := rule.Satisfied(ctx, rc)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFiveCoursesDown(t *testing.T) {
	ctx := context.Background()
	rule := ruleByName(t, "Five Courses Down!")

	for count, want := range map[int]bool{4: false, 5: true, 6: true} {
		rc := &fakeRuleContext{course: courseWithTag(""), completedCount: count}
		ok, err := rule.Satisfied(ctx, rc)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "completed count %d", count)
	}
}

func TestFirstTrackCompleted(t *testing.T) {
	ctx := context.Background()
	rule := ruleByName(t, "First Track Completed!")

	tests := []struct {
		name      string
		completed int
		total     int
		want      bool
	}{
		{"full track", 8, 8, true},
		{"one short", 7, 8, false},
		{"empty track never completes", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &fakeRuleContext{course: courseWithTag(""), trackCompleted: tt.completed, trackTotal: tt.total}
			ok, err := rule.Satisfied(ctx, rc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHalfwayThere(t *testing.T) {
	ctx := context.Background()
	rule := ruleByName(t, "Halfway There!")

	tests := []struct {
		name      string
		completed int
		total     int
		want      bool
	}{
		{"six of ten", 6, 10, true},
		{"five of ten", 5, 10, false},
		{"short tracks never qualify", 6, 8, false},
		{"seven of twelve", 7, 12, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &fakeRuleContext{course: courseWithTag(""), trackCompleted: tt.completed, trackTotal: tt.total}
			ok, err := rule.Satisfied(ctx, rc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRuleTableIsStable(t *testing.T) {
	names := make(map[string]bool)
	for _, r := range Rules() {
		assert.False(t, names[r.Name], "duplicate rule %q", r.Name)
		names[r.Name] = true
		assert.NotNil(t, r.Satisfied)
	}
	assert.Len(t, names, 10)
}
