package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

func initFixture(t *testing.T) (*InitializeTrackProgressHandler, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	store.catalogRepo.courses["c-1"] = catalog.Course{ID: "c-1", TrackID: "t-1", OrderInTrack: 1}
	store.catalogRepo.courses["c-2"] = catalog.Course{ID: "c-2", TrackID: "t-1", OrderInTrack: 2}
	store.catalogRepo.courses["c-3"] = catalog.Course{ID: "c-3", TrackID: "t-1", OrderInTrack: 3}

	handler := NewInitializeTrackProgressHandler(&fakeUnitOfWork{store: store}, &countingIDGen{}, silentLogger())
	return handler, store
}

func TestInitializeTrackProgress(t *testing.T) {
	ctx := context.Background()
	cmd := InitializeTrackProgressCommand{LearnerID: "l-1", TrackID: "t-1"}

	t.Run("creates one row per course, first unlocked", func(t *testing.T) {
		handler, store := initFixture(t)

		require.NoError(t, handler.Handle(ctx, cmd))

		first, err := store.progressRepo.Get(ctx, "l-1", "c-1")
		require.NoError(t, err)
		assert.Equal(t, learner.StatusUnlocked, first.Status)
		require.NotNil(t, first.UnlockedAt)

		for _, courseID := range []string{"c-2", "c-3"} {
			p, err := store.progressRepo.Get(ctx, "l-1", courseID)
			require.NoError(t, err)
			assert.Equal(t, learner.StatusLocked, p.Status, courseID)
			assert.Nil(t, p.UnlockedAt)
		}
	})

	t.Run("repeat call leaves existing rows alone", func(t *testing.T) {
		handler, store := initFixture(t)

		require.NoError(t, handler.Handle(ctx, cmd))

		// The learner advanced in the meantime.
		p, _ := store.progressRepo.Get(ctx, "l-1", "c-1")
		p.Status = learner.StatusInProgress
		p.TheoryScore = 15
		p.TotalScore = 15
		require.NoError(t, store.progressRepo.Update(ctx, p))

		require.NoError(t, handler.Handle(ctx, cmd))

		kept, _ := store.progressRepo.Get(ctx, "l-1", "c-1")
		assert.Equal(t, learner.StatusInProgress, kept.Status)
		assert.Equal(t, 15, kept.TotalScore)
	})

	t.Run("fills only the missing rows", func(t *testing.T) {
		handler, store := initFixture(t)

		// c-1 exists already, c-2 and c-3 do not.
		require.NoError(t, store.progressRepo.Create(ctx, learner.NewCourseProgress("p-1", "l-1", "c-1", learner.StatusCompleted, time.Now().UTC())))

		require.NoError(t, handler.Handle(ctx, cmd))

		_, err := store.progressRepo.Get(ctx, "l-1", "c-2")
		assert.NoError(t, err)
		kept, _ := store.progressRepo.Get(ctx, "l-1", "c-1")
		assert.Equal(t, learner.StatusCompleted, kept.Status)
	})

	t.Run("unknown track", func(t *testing.T) {
		handler, _ := initFixture(t)

		err := handler.Handle(ctx, InitializeTrackProgressCommand{LearnerID: "l-1", TrackID: "t-missing"})
		assert.ErrorIs(t, err, shared.ErrTrackNotFound)
	})

	t.Run("broken track ordering is rejected before any write", func(t *testing.T) {
		handler, store := initFixture(t)
		// Introduce a gap: 1, 2, 4.
		c := store.catalogRepo.courses["c-3"]
		c.OrderInTrack = 4
		store.catalogRepo.courses["c-3"] = c

		err := handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrTrackOrderBroken)
		assert.Empty(t, store.progressRepo.rows)
	})

	t.Run("missing identifiers fail validation", func(t *testing.T) {
		handler, _ := initFixture(t)

		err := handler.Handle(ctx, InitializeTrackProgressCommand{LearnerID: "", TrackID: "t-1"})
		assert.ErrorIs(t, err, shared.ErrEmptyValue)
	})
}
