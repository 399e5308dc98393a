package command

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/achievement"
	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// In-memory store fakes shared by the command handler tests.

type fakeLearnerRepo struct {
	learners map[string]learner.Learner
}

func (r *fakeLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	for _, existing := range r.learners {
		if existing.Username == l.Username || existing.Email == l.Email {
			return shared.ErrLearnerAlreadyExists
		}
	}
	r.learners[l.ID] = *l
	return nil
}

func (r *fakeLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	l, ok := r.learners[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	copied := l
	return &copied, nil
}

func (r *fakeLearnerRepo) GetByUsername(_ context.Context, username string) (*learner.Learner, error) {
	for _, l := range r.learners {
		if l.Username.String() == username {
			copied := l
			return &copied, nil
		}
	}
	return nil, shared.ErrLearnerNotFound
}

func (r *fakeLearnerRepo) UpdateXP(_ context.Context, id string, xp learner.XP) error {
	l, ok := r.learners[id]
	if !ok {
		return shared.ErrLearnerNotFound
	}
	l.XPPoints = xp
	r.learners[id] = l
	return nil
}

func (r *fakeLearnerRepo) TopByXP(_ context.Context, limit int) ([]learner.Learner, error) {
	return nil, nil
}

type fakeProgressRepo struct {
	rows    map[string]learner.CourseProgress // key: learnerID|courseID
	catalog *fakeCatalogRepo
}

func key(learnerID, courseID string) string { return learnerID + "|" + courseID }

func (r *fakeProgressRepo) Create(_ context.Context, p *learner.CourseProgress) error {
	k := key(p.LearnerID, p.CourseID)
	if _, ok := r.rows[k]; ok {
		return shared.ErrProgressExists
	}
	r.rows[k] = *p
	return nil
}

func (r *fakeProgressRepo) Get(_ context.Context, learnerID, courseID string) (*learner.CourseProgress, error) {
	p, ok := r.rows[key(learnerID, courseID)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	copied := p
	return &copied, nil
}

func (r *fakeProgressRepo) GetForUpdate(ctx context.Context, learnerID, courseID string) (*learner.CourseProgress, error) {
	return r.Get(ctx, learnerID, courseID)
}

func (r *fakeProgressRepo) Update(_ context.Context, p *learner.CourseProgress) error {
	k := key(p.LearnerID, p.CourseID)
	if _, ok := r.rows[k]; !ok {
		return shared.ErrProgressNotFound
	}
	r.rows[k] = *p
	return nil
}

func (r *fakeProgressRepo) ListForTrack(_ context.Context, learnerID, trackID string) (map[string]*learner.CourseProgress, error) {
	out := make(map[string]*learner.CourseProgress)
	for _, c := range r.catalog.courses {
		if c.TrackID != trackID {
			continue
		}
		if p, ok := r.rows[key(learnerID, c.ID)]; ok {
			copied := p
			out[c.ID] = &copied
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) CountCompleted(_ context.Context, learnerID string) (int, error) {
	n := 0
	for _, p := range r.rows {
		if p.LearnerID == learnerID && p.Status == learner.StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (r *fakeProgressRepo) CountCompletedInTrack(_ context.Context, learnerID, trackID string) (int, error) {
	n := 0
	for _, c := range r.catalog.courses {
		if c.TrackID != trackID {
			continue
		}
		if p, ok := r.rows[key(learnerID, c.ID)]; ok && p.Status == learner.StatusCompleted {
			n++
		}
	}
	return n, nil
}

type fakeCatalogRepo struct {
	courses     map[string]catalog.Course
	assessments map[string]catalog.Assessment
}

func (r *fakeCatalogRepo) GetCourse(_ context.Context, courseID string) (*catalog.Course, error) {
	c, ok := r.courses[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	copied := c
	return &copied, nil
}

func (r *fakeCatalogRepo) GetAssessment(_ context.Context, courseID, assessmentID string) (*catalog.Assessment, error) {
	a, ok := r.assessments[assessmentID]
	if !ok || a.CourseID != courseID {
		return nil, shared.ErrAssessmentNotFound
	}
	copied := a
	return &copied, nil
}

func (r *fakeCatalogRepo) ListTrackCourses(_ context.Context, trackID string) ([]catalog.Course, error) {
	out := make([]catalog.Course, 0)
	for _, c := range r.courses {
		if c.TrackID == trackID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInTrack < out[j].OrderInTrack })
	return out, nil
}

func (r *fakeCatalogRepo) GetCourseByTag(_ context.Context, tag catalog.MilestoneTag) (*catalog.Course, error) {
	return nil, shared.ErrCourseNotFound
}

func (r *fakeCatalogRepo) GetTrack(_ context.Context, trackID string) (*catalog.Track, error) {
	return nil, shared.ErrTrackNotFound
}

func (r *fakeCatalogRepo) ListPaths(_ context.Context) ([]catalog.LearningPath, error) {
	return nil, nil
}

func (r *fakeCatalogRepo) ListPathTracks(_ context.Context, _ string) ([]catalog.Track, error) {
	return nil, nil
}

type fakeAchievementRepo struct{}

func (fakeAchievementRepo) GetByName(_ context.Context, _ string) (*achievement.Achievement, error) {
	return nil, shared.ErrAchievementNotFound
}

func (fakeAchievementRepo) HasAward(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (fakeAchievementRepo) CreateAward(_ context.Context, _ *achievement.LearnerAchievement) error {
	return nil
}

func (fakeAchievementRepo) ListForLearner(_ context.Context, _ string) ([]achievement.AwardedAchievement, error) {
	return nil, nil
}

type fakeStore struct {
	learnerRepo  *fakeLearnerRepo
	progressRepo *fakeProgressRepo
	catalogRepo  *fakeCatalogRepo
}

func newFakeStore() *fakeStore {
	catalogRepo := &fakeCatalogRepo{
		courses:     make(map[string]catalog.Course),
		assessments: make(map[string]catalog.Assessment),
	}
	return &fakeStore{
		learnerRepo:  &fakeLearnerRepo{learners: make(map[string]learner.Learner)},
		progressRepo: &fakeProgressRepo{rows: make(map[string]learner.CourseProgress), catalog: catalogRepo},
		catalogRepo:  catalogRepo,
	}
}

func (s *fakeStore) Learners() learner.Repository         { return s.learnerRepo }
func (s *fakeStore) Progress() learner.ProgressRepository { return s.progressRepo }
func (s *fakeStore) Catalog() catalog.Repository          { return s.catalogRepo }
func (s *fakeStore) Achievements() achievement.Repository { return fakeAchievementRepo{} }

type fakeUnitOfWork struct {
	store *fakeStore
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, s port.Store) error) error {
	return fn(ctx, u.store)
}

func (u *fakeUnitOfWork) Store() port.Store { return u.store }

type recordingPublisher struct {
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

type countingIDGen struct {
	n int
}

func (g *countingIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func silentLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}
