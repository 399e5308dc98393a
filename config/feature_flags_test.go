package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlagDefaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureProgressionAchievements, nil))
	assert.True(t, ff.IsEnabled(FeatureProgressionUnlockNext, nil))
	assert.True(t, ff.IsEnabled(FeatureProgressionMockedScores, nil))
	assert.True(t, ff.IsEnabled(FeatureLeaderboardCache, nil))
	assert.True(t, ff.IsEnabled(FeatureSessionXPMirror, nil))

	assert.False(t, ff.IsEnabled(FeatureExperimentalPerCoursePolicy, nil))
	assert.False(t, ff.IsEnabled("unknown.feature", nil))
}

func TestFeatureFlagEnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_LEADERBOARD_CACHE", "false")
	t.Setenv("FEATURE_EXPERIMENTAL_PER_COURSE_POLICY", "true")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureLeaderboardCache, nil))
	assert.True(t, ff.IsEnabled(FeatureExperimentalPerCoursePolicy, nil))
}

func TestFeatureFlagPercentFromEnvironment(t *testing.T) {
	t.Setenv("FEATURE_SESSION_XP_MIRROR", "50")

	ff := LoadFeatureFlags()

	features := ff.GetAllFeatures()
	require.Contains(t, features, FeatureSessionXPMirror)
	assert.Equal(t, 50, features[FeatureSessionXPMirror].RolloutPercent)
	assert.True(t, features[FeatureSessionXPMirror].Enabled)
}

func TestFeatureFlagRolloutIsConsistent(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureSessionXPMirror, 50))

	ctx := &FeatureContext{LearnerID: "learner-42"}

	first := ff.IsEnabled(FeatureSessionXPMirror, ctx)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureSessionXPMirror, ctx))
	}
}

func TestFeatureFlagRolloutBounds(t *testing.T) {
	ff := LoadFeatureFlags()

	// At 0% nobody is in; at 100% everybody is.
	require.NoError(t, ff.SetRolloutPercent(FeatureSessionXPMirror, 0))
	assert.False(t, ff.IsEnabled(FeatureSessionXPMirror, &FeatureContext{LearnerID: "l-1"}))

	require.NoError(t, ff.SetRolloutPercent(FeatureSessionXPMirror, 100))
	assert.True(t, ff.IsEnabled(FeatureSessionXPMirror, &FeatureContext{LearnerID: "l-1"}))

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureSessionXPMirror, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureSessionXPMirror, -1), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent("unknown.feature", 10), ErrFeatureNotFound)
}

func TestFeatureFlagUserOverrides(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{LearnerID: "l-1"}

	ff.SetUserOverride("l-1", FeatureLeaderboardCache, false)
	assert.False(t, ff.IsEnabled(FeatureLeaderboardCache, ctx))
	// Other learners keep the default.
	assert.True(t, ff.IsEnabled(FeatureLeaderboardCache, &FeatureContext{LearnerID: "l-2"}))

	ff.ClearUserOverrides("l-1")
	assert.True(t, ff.IsEnabled(FeatureLeaderboardCache, ctx))
}

func TestFeatureFlagAdminBypass(t *testing.T) {
	ff := LoadFeatureFlags()

	admin := &FeatureContext{LearnerID: "l-admin", IsAdmin: true}
	assert.True(t, ff.IsEnabled(FeatureExperimentalPerCoursePolicy, admin))
}

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_LEADERBOARD_CACHE", featureNameToEnvKey("leaderboard.cache"))
	assert.Equal(t, "FEATURE_PROGRESSION_UNLOCK_NEXT", featureNameToEnvKey("progression.unlock_next"))
}
