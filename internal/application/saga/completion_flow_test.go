package saga

import (
	"context"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/achievement"
	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type memLearnerRepo struct {
	learners map[string]learner.Learner
}

func (r *memLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	for _, existing := range r.learners {
		if existing.Username == l.Username || existing.Email == l.Email {
			return shared.ErrLearnerAlreadyExists
		}
	}
	r.learners[l.ID] = *l
	return nil
}

func (r *memLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	l, ok := r.learners[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	copied := l
	return &copied, nil
}

func (r *memLearnerRepo) GetByUsername(_ context.Context, username string) (*learner.Learner, error) {
	for _, l := range r.learners {
		if l.Username.String() == username {
			copied := l
			return &copied, nil
		}
	}
	return nil, shared.ErrLearnerNotFound
}

func (r *memLearnerRepo) UpdateXP(_ context.Context, id string, xp learner.XP) error {
	l, ok := r.learners[id]
	if !ok {
		return shared.ErrLearnerNotFound
	}
	l.XPPoints = xp
	r.learners[id] = l
	return nil
}

func (r *memLearnerRepo) TopByXP(_ context.Context, limit int) ([]learner.Learner, error) {
	all := make([]learner.Learner, 0, len(r.learners))
	for _, l := range r.learners {
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].XPPoints != all[j].XPPoints {
			return all[i].XPPoints > all[j].XPPoints
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type memProgressRepo struct {
	rows map[string]learner.CourseProgress // key: learnerID|courseID
}

func progressKey(learnerID, courseID string) string {
	return learnerID + "|" + courseID
}

func (r *memProgressRepo) Create(_ context.Context, p *learner.CourseProgress) error {
	key := progressKey(p.LearnerID, p.CourseID)
	if _, ok := r.rows[key]; ok {
		return shared.ErrProgressExists
	}
	r.rows[key] = *p
	return nil
}

func (r *memProgressRepo) Get(_ context.Context, learnerID, courseID string) (*learner.CourseProgress, error) {
	p, ok := r.rows[progressKey(learnerID, courseID)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	copied := p
	return &copied, nil
}

func (r *memProgressRepo) GetForUpdate(ctx context.Context, learnerID, courseID string) (*learner.CourseProgress, error) {
	return r.Get(ctx, learnerID, courseID)
}

func (r *memProgressRepo) Update(_ context.Context, p *learner.CourseProgress) error {
	key := progressKey(p.LearnerID, p.CourseID)
	if _, ok := r.rows[key]; !ok {
		return shared.ErrProgressNotFound
	}
	r.rows[key] = *p
	return nil
}

func (r *memProgressRepo) ListForTrack(_ context.Context, learnerID, trackID string) (map[string]*learner.CourseProgress, error) {
	panic("ListForTrack needs course metadata, wire through memStore instead")
}

func (r *memProgressRepo) CountCompleted(_ context.Context, learnerID string) (int, error) {
	n := 0
	for _, p := range r.rows {
		if p.LearnerID == learnerID && p.Status == learner.StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (r *memProgressRepo) CountCompletedInTrack(_ context.Context, learnerID, trackID string) (int, error) {
	panic("CountCompletedInTrack needs course metadata, wire through memStore instead")
}

// trackAwareProgressRepo joins progress rows with the catalog so the two
// track-scoped queries work like their SQL counterparts.
type trackAwareProgressRepo struct {
	*memProgressRepo
	catalog *memCatalogRepo
}

func (r *trackAwareProgressRepo) ListForTrack(_ context.Context, learnerID, trackID string) (map[string]*learner.CourseProgress, error) {
	out := make(map[string]*learner.CourseProgress)
	for _, c := range r.catalog.courses {
		if c.TrackID != trackID {
			continue
		}
		if p, ok := r.rows[progressKey(learnerID, c.ID)]; ok {
			copied := p
			out[c.ID] = &copied
		}
	}
	return out, nil
}

func (r *trackAwareProgressRepo) CountCompletedInTrack(_ context.Context, learnerID, trackID string) (int, error) {
	n := 0
	for _, c := range r.catalog.courses {
		if c.TrackID != trackID {
			continue
		}
		if p, ok := r.rows[progressKey(learnerID, c.ID)]; ok && p.Status == learner.StatusCompleted {
			n++
		}
	}
	return n, nil
}

type memCatalogRepo struct {
	courses     map[string]catalog.Course
	assessments map[string]catalog.Assessment
	tracks      map[string]catalog.Track
}

func (r *memCatalogRepo) GetCourse(_ context.Context, courseID string) (*catalog.Course, error) {
	c, ok := r.courses[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	copied := c
	return &copied, nil
}

func (r *memCatalogRepo) GetAssessment(_ context.Context, courseID, assessmentID string) (*catalog.Assessment, error) {
	a, ok := r.assessments[assessmentID]
	if !ok || a.CourseID != courseID {
		return nil, shared.ErrAssessmentNotFound
	}
	copied := a
	return &copied, nil
}

func (r *memCatalogRepo) ListTrackCourses(_ context.Context, trackID string) ([]catalog.Course, error) {
	out := make([]catalog.Course, 0)
	for _, c := range r.courses {
		if c.TrackID == trackID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInTrack < out[j].OrderInTrack })
	return out, nil
}

func (r *memCatalogRepo) GetCourseByTag(_ context.Context, tag catalog.MilestoneTag) (*catalog.Course, error) {
	for _, c := range r.courses {
		if c.MilestoneTag == tag && tag != "" {
			copied := c
			return &copied, nil
		}
	}
	return nil, shared.ErrCourseNotFound
}

func (r *memCatalogRepo) GetTrack(_ context.Context, trackID string) (*catalog.Track, error) {
	t, ok := r.tracks[trackID]
	if !ok {
		return nil, shared.ErrTrackNotFound
	}
	copied := t
	return &copied, nil
}

func (r *memCatalogRepo) ListPaths(_ context.Context) ([]catalog.LearningPath, error) {
	return nil, nil
}

func (r *memCatalogRepo) ListPathTracks(_ context.Context, _ string) ([]catalog.Track, error) {
	return nil, nil
}

type memAchievementRepo struct {
	byName map[string]achievement.Achievement
	awards map[string]achievement.LearnerAchievement // key: learnerID|achievementID
}

func (r *memAchievementRepo) GetByName(_ context.Context, name string) (*achievement.Achievement, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, shared.ErrAchievementNotFound
	}
	copied := a
	return &copied, nil
}

func (r *memAchievementRepo) HasAward(_ context.Context, learnerID, achievementID string) (bool, error) {
	_, ok := r.awards[learnerID+"|"+achievementID]
	return ok, nil
}

func (r *memAchievementRepo) CreateAward(_ context.Context, award *achievement.LearnerAchievement) error {
	key := award.LearnerID + "|" + award.AchievementID
	if _, ok := r.awards[key]; ok {
		return shared.ErrAlreadyAwarded
	}
	r.awards[key] = *award
	return nil
}

func (r *memAchievementRepo) ListForLearner(_ context.Context, learnerID string) ([]achievement.AwardedAchievement, error) {
	out := make([]achievement.AwardedAchievement, 0)
	for _, award := range r.awards {
		if award.LearnerID != learnerID {
			continue
		}
		for _, a := range r.byName {
			if a.ID == award.AchievementID {
				out = append(out, achievement.AwardedAchievement{Achievement: a, UnlockedAt: award.UnlockedAt})
			}
		}
	}
	return out, nil
}

type memStore struct {
	learnerRepo  *memLearnerRepo
	progressRepo *trackAwareProgressRepo
	catalogRepo  *memCatalogRepo
	achieveRepo  *memAchievementRepo
}

func newMemStore() *memStore {
	catalogRepo := &memCatalogRepo{
		courses:     make(map[string]catalog.Course),
		assessments: make(map[string]catalog.Assessment),
		tracks:      make(map[string]catalog.Track),
	}
	return &memStore{
		learnerRepo: &memLearnerRepo{learners: make(map[string]learner.Learner)},
		progressRepo: &trackAwareProgressRepo{
			memProgressRepo: &memProgressRepo{rows: make(map[string]learner.CourseProgress)},
			catalog:         catalogRepo,
		},
		catalogRepo: catalogRepo,
		achieveRepo: &memAchievementRepo{
			byName: make(map[string]achievement.Achievement),
			awards: make(map[string]achievement.LearnerAchievement),
		},
	}
}

func (s *memStore) Learners() learner.Repository         { return s.learnerRepo }
func (s *memStore) Progress() learner.ProgressRepository { return s.progressRepo }
func (s *memStore) Catalog() catalog.Repository          { return s.catalogRepo }
func (s *memStore) Achievements() achievement.Repository { return s.achieveRepo }

type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, s port.Store) error) error {
	return fn(ctx, u.store)
}

func (u *memUnitOfWork) Store() port.Store { return u.store }

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) typesSeen() []shared.EventType {
	types := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

type capturingNotifier struct {
	learnerID string
	total     int
	calls     int
}

func (n *capturingNotifier) NotifyXPChanged(_ context.Context, learnerID string, newTotal int) error {
	n.learnerID = learnerID
	n.total = newTotal
	n.calls++
	return nil
}

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE SETUP
// ══════════════════════════════════════════════════════════════════════════════

type fixture struct {
	store    *memStore
	saga     *CompletionFlowSaga
	events   *capturingPublisher
	notifier *capturingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	events := &capturingPublisher{}
	notifier := &capturingNotifier{}
	log := logger.New(logger.Options{Output: io.Discard})

	s := NewCompletionFlowSaga(
		&memUnitOfWork{store: store},
		events,
		notifier,
		&seqIDGen{},
		learner.DefaultPolicy(),
		log,
	)

	return &fixture{store: store, saga: s, events: events, notifier: notifier}
}

// seedTrack installs a three-course track, a learner, and the full
// achievement catalog.
func (f *fixture) seedTrack(t *testing.T) {
	t.Helper()

	f.store.catalogRepo.tracks["t-1"] = catalog.Track{ID: "t-1", PathID: "path-1", Name: "JavaScript Essentials"}
	f.store.catalogRepo.courses["c-1"] = catalog.Course{ID: "c-1", TrackID: "t-1", Name: "JS Basics", OrderInTrack: 1, MilestoneTag: catalog.TagJSFundamentals}
	f.store.catalogRepo.courses["c-2"] = catalog.Course{ID: "c-2", TrackID: "t-1", Name: "JS Functions", OrderInTrack: 2, MilestoneTag: catalog.TagJSFunctions}
	f.store.catalogRepo.courses["c-3"] = catalog.Course{ID: "c-3", TrackID: "t-1", Name: "JS DOM", OrderInTrack: 3, MilestoneTag: catalog.TagJSDom}

	f.store.learnerRepo.learners["l-1"] = learner.Learner{
		ID: "l-1", Username: "alikhan", Email: "a@kodefun.dev", XPPoints: 0,
	}

	seed := []struct {
		name  string
		bonus learner.XP
	}{
		{"JavaScript Novice", 25},
		{"PHP Beginner", 25},
		{"Web Dev Starter", 30},
		{"Five Courses Down!", 50},
		{"First Track Completed!", 200},
		{"JS Functions Pro", 30},
		{"DOM Manipulator", 35},
		{"PHP OOP Basics", 30},
		{"Full-Stack Foundation", 100},
		{"Halfway There!", 75},
	}
	for i, s := range seed {
		f.store.achieveRepo.byName[s.name] = achievement.Achievement{
			ID: fmt.Sprintf("ach-%d", i+1), Name: s.name, XPBonus: s.bonus,
		}
	}
}

// seedProgress installs one progress row.
func (f *fixture) seedProgress(courseID string, status learner.Status, total, attempts int) {
	now := time.Now().UTC()
	p := learner.CourseProgress{
		ID: "p-" + courseID, LearnerID: "l-1", CourseID: courseID,
		Status: status, TheoryScore: total, TotalScore: total, Attempts: attempts,
	}
	if status != learner.StatusLocked {
		p.UnlockedAt = &now
	}
	f.store.progressRepo.rows[progressKey("l-1", courseID)] = p
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestCompletionFlow_PassingScore(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusInProgress, 85, 0)
	f.seedProgress("c-2", learner.StatusLocked, 0, 0)
	f.seedProgress("c-3", learner.StatusLocked, 0, 0)

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	require.NoError(t, err)

	assert.Equal(t, learner.OutcomeCompleted, result.Outcome)
	assert.Equal(t, learner.StatusCompleted, result.Status)
	assert.Equal(t, 85, result.TotalScore)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 100, result.XPAwarded)
	assert.Equal(t, "c-2", result.UnlockedCourseID)

	// c-1 carries the js-fundamentals milestone.
	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "JavaScript Novice", result.Achievements[0].Name)
	assert.Equal(t, 25, result.Achievements[0].XPBonus)
	assert.Equal(t, 125, result.NewXPTotal)

	// Persisted state matches the result.
	saved, err := f.store.progressRepo.Get(context.Background(), "l-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, learner.StatusCompleted, saved.Status)

	next, err := f.store.progressRepo.Get(context.Background(), "l-1", "c-2")
	require.NoError(t, err)
	assert.Equal(t, learner.StatusUnlocked, next.Status)

	l, err := f.store.learnerRepo.GetByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, learner.XP(125), l.XPPoints)

	// Post-commit side effects.
	assert.Contains(t, f.events.typesSeen(), shared.EventCourseCompleted)
	assert.Contains(t, f.events.typesSeen(), shared.EventXPGained)
	assert.Contains(t, f.events.typesSeen(), shared.EventCourseUnlocked)
	assert.Contains(t, f.events.typesSeen(), shared.EventAchievementUnlocked)
	assert.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, 125, f.notifier.total)
}

func TestCompletionFlow_RetryBelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusInProgress, 50, 0)

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	require.NoError(t, err)

	assert.Equal(t, learner.OutcomeRetry, result.Outcome)
	assert.Equal(t, learner.StatusInProgress, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 2, result.AttemptsRemaining)
	assert.Zero(t, result.XPAwarded)
	assert.Empty(t, result.Achievements)
	assert.Empty(t, result.UnlockedCourseID)
	assert.Contains(t, result.Notice, "Attempts left: 2")

	// No XP, no session notification, no events on a retry.
	l, _ := f.store.learnerRepo.GetByID(context.Background(), "l-1")
	assert.Equal(t, learner.XP(0), l.XPPoints)
	assert.Zero(t, f.notifier.calls)
	assert.Empty(t, f.events.events)

	// The attempt itself is persisted.
	saved, _ := f.store.progressRepo.Get(context.Background(), "l-1", "c-1")
	assert.Equal(t, 1, saved.Attempts)
}

func TestCompletionFlow_TerminalFailureOnLastAttempt(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusInProgress, 40, 3)

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	require.NoError(t, err)

	assert.Equal(t, learner.OutcomeFailed, result.Outcome)
	assert.Equal(t, learner.StatusFailed, result.Status)
	assert.Contains(t, result.Notice, "marked as failed")

	saved, _ := f.store.progressRepo.Get(context.Background(), "l-1", "c-1")
	assert.Equal(t, learner.StatusFailed, saved.Status)

	assert.Equal(t, []shared.EventType{shared.EventCourseFailed}, f.events.typesSeen())
	assert.Zero(t, f.notifier.calls)
}

func TestCompletionFlow_AlreadyEvaluated(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusCompleted, 85, 1)

	_, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	assert.ErrorIs(t, err, shared.ErrStateTransition)
	assert.Empty(t, f.events.events)
}

func TestCompletionFlow_AchievementAwardIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusInProgress, 85, 0)

	// The learner already holds JavaScript Novice from a previous flow.
	f.store.achieveRepo.awards["l-1|ach-1"] = achievement.LearnerAchievement{
		ID: "award-0", LearnerID: "l-1", AchievementID: "ach-1", UnlockedAt: time.Now().UTC(),
	}

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	require.NoError(t, err)

	assert.Empty(t, result.Achievements)
	assert.Equal(t, 100, result.NewXPTotal, "only the completion XP, no repeated bonus")
}

func TestCompletionFlow_UnlockCreatesMissingRow(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusInProgress, 85, 0)
	// No progress rows exist for c-2 and c-3.

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	require.NoError(t, err)

	assert.Equal(t, "c-2", result.UnlockedCourseID)
	next, err := f.store.progressRepo.Get(context.Background(), "l-1", "c-2")
	require.NoError(t, err)
	assert.Equal(t, learner.StatusUnlocked, next.Status)
	require.NotNil(t, next.UnlockedAt)
}

func TestCompletionFlow_UnlockSkipsAlreadyOpenCourse(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusInProgress, 85, 0)
	f.seedProgress("c-2", learner.StatusInProgress, 30, 0)

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	require.NoError(t, err)

	assert.Empty(t, result.UnlockedCourseID)
	next, _ := f.store.progressRepo.Get(context.Background(), "l-1", "c-2")
	assert.Equal(t, learner.StatusInProgress, next.Status)
	assert.Equal(t, 30, next.TotalScore, "existing progress is untouched")
}

func TestCompletionFlow_LastCourseOfTrack(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)
	f.seedProgress("c-1", learner.StatusCompleted, 85, 1)
	f.seedProgress("c-2", learner.StatusCompleted, 90, 1)
	f.seedProgress("c-3", learner.StatusInProgress, 75, 0)

	result, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-3"})
	require.NoError(t, err)

	assert.Empty(t, result.UnlockedCourseID, "end of track unlocks nothing")

	// Completing every course of the track awards First Track Completed!
	// alongside the c-3 milestone.
	names := make([]string, 0, len(result.Achievements))
	for _, a := range result.Achievements {
		names = append(names, a.Name)
	}
	assert.Contains(t, names, "DOM Manipulator")
	assert.Contains(t, names, "First Track Completed!")
	assert.Equal(t, 100+35+200, result.NewXPTotal)
}

func TestCompletionFlow_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "", CourseID: "c-1"})
	assert.Error(t, err)

	_, err = f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: ""})
	assert.Error(t, err)
}

func TestCompletionFlow_MissingProgress(t *testing.T) {
	f := newFixture(t)
	f.seedTrack(t)

	_, err := f.saga.Execute(context.Background(), CompletionInput{LearnerID: "l-1", CourseID: "c-1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
