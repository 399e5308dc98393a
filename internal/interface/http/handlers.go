package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kodefun/kodefun-platform/internal/application/command"
	"github.com/kodefun/kodefun-platform/internal/application/query"
	"github.com/kodefun/kodefun-platform/internal/application/saga"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
	"github.com/kodefun/kodefun-platform/pkg/retry"
)

// Substitute ratio used when the client submits a score without a grading
// signal. Project and live coding reviews are recorded by instructors out of
// band, so the API accepts the submission with a fixed provisional fraction.
const mockPerformanceRatio = 0.80

// headerLearnerID carries the authenticated learner identity, set by the
// session gateway in front of this service.
const headerLearnerID = "X-Learner-ID"

// learnerIDFromRequest extracts the authenticated learner ID.
func learnerIDFromRequest(r *http.Request) string {
	return r.Header.Get(headerLearnerID)
}

// mapDomainError translates a domain error into an HTTP error response.
func (s *Server) mapDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsStateTransition(err):
		// Locked courses and exhausted attempts are ordinary outcomes for the
		// client, not server faults.
		writeJSONError(w, http.StatusConflict, "invalid_state", err.Error())
	case shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "concurrent_modification", "The record was modified concurrently, please retry")
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	default:
		s.logger.Error("request failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth returns the aggregated health of all backing services.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type componentHealth struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	components := make(map[string]componentHealth, len(s.deps.HealthCheckers))
	healthy := true

	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(r.Context()); err != nil {
			healthy = false
			components[name] = componentHealth{Status: "down", Error: err.Error()}
		} else {
			components[name] = componentHealth{Status: "up"}
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":     overall,
		"uptime":     s.Uptime().String(),
		"components": components,
	})
}

// handleReady reports readiness for traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(r.Context()); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", name+" is unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports process liveness.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleRoot returns basic service info.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Route not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "kodefun-platform",
		"api":     "/api/v1",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRegisterLearner creates a new learner account.
// POST /api/v1/learners
func (s *Server) handleRegisterLearner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.RegisterLearner.Handle(r.Context(), command.RegisterLearnerCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"learner_id": result.LearnerID,
		"username":   result.Username,
	})
}

// handleListAchievements returns the learner's unlocked achievements.
// GET /api/v1/learners/me/achievements
func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerIDFromRequest(r)
	if learnerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Learner-ID header is required")
		return
	}

	achievements, err := s.deps.ListAchievements.Handle(r.Context(), query.ListAchievementsQuery{
		LearnerID: learnerID,
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"achievements": achievements,
		"count":        len(achievements),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TRACK & PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetTrackCourses lists a track's courses with the learner's progress.
// Opening a track is what materializes the learner's progress rows, so the
// initializer runs before the read.
// GET /api/v1/tracks/{id}/courses
func (s *Server) handleGetTrackCourses(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerIDFromRequest(r)
	if learnerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Learner-ID header is required")
		return
	}
	trackID := r.PathValue("id")

	err := s.deps.InitializeProgress.Handle(r.Context(), command.InitializeTrackProgressCommand{
		LearnerID: learnerID,
		TrackID:   trackID,
	})
	if err != nil && !errors.Is(err, shared.ErrAlreadyExists) {
		s.mapDomainError(w, r, err)
		return
	}

	result, err := s.deps.GetTrackCourses.Handle(r.Context(), query.GetTrackCoursesQuery{
		LearnerID: learnerID,
		TrackID:   trackID,
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetProgress returns the learner's progress on one course.
// GET /api/v1/courses/{id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerIDFromRequest(r)
	if learnerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Learner-ID header is required")
		return
	}

	progress, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		LearnerID: learnerID,
		CourseID:  r.PathValue("id"),
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSubmitScore records one component score for a course.
// POST /api/v1/courses/{id}/scores
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerIDFromRequest(r)
	if learnerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Learner-ID header is required")
		return
	}

	var req struct {
		AssessmentID     string   `json:"assessment_id"`
		PerformanceRatio *float64 `json:"performance_ratio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	ratio := mockPerformanceRatio
	if req.PerformanceRatio != nil {
		ratio = *req.PerformanceRatio
	}

	result, err := s.deps.SubmitScore.Handle(r.Context(), command.SubmitComponentScoreCommand{
		LearnerID:        learnerID,
		CourseID:         r.PathValue("id"),
		AssessmentID:     req.AssessmentID,
		PerformanceRatio: ratio,
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points_earned": result.PointsEarned,
		"weight":        result.Weight,
		"total_score":   result.TotalScore,
		"status":        result.Status,
	})
}

// handleEvaluateCompletion runs the completion evaluation for a course. A
// concurrency conflict on the progress row is retried once before surfacing.
// POST /api/v1/courses/{id}/evaluation
func (s *Server) handleEvaluateCompletion(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerIDFromRequest(r)
	if learnerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Learner-ID header is required")
		return
	}

	input := saga.CompletionInput{
		LearnerID: learnerID,
		CourseID:  r.PathValue("id"),
	}

	var result *saga.CompletionResult
	err := retry.ConflictRetrier().Do(r.Context(), func(ctx context.Context) error {
		var execErr error
		result, execErr = s.deps.CompletionFlow.Execute(ctx, input)
		if execErr == nil {
			return nil
		}
		if shared.IsConflict(execErr) {
			return retry.Retryable(execErr)
		}
		return retry.Permanent(execErr)
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard returns the XP ranking.
// GET /api/v1/leaderboard?limit=N
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		Limit: getQueryParamInt(r, "limit", 20),
	})
	if err != nil {
		s.mapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
