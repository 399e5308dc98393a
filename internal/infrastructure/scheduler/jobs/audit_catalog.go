package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT CATALOG JOB
// ══════════════════════════════════════════════════════════════════════════════

// AuditCatalogJob verifies that every track's course ordering is contiguous
// and starts at 1. Unlock propagation walks order_in_track sequentially, so
// a gap introduced by authoring tooling silently strands learners on the
// course before the gap. The audit does not repair anything; it surfaces
// broken tracks in the logs for the content team.
type AuditCatalogJob struct {
	catalog catalog.Repository
	logger  *slog.Logger
	timeout time.Duration
}

// NewAuditCatalogJob creates a new catalog audit job.
func NewAuditCatalogJob(repo catalog.Repository, logger *slog.Logger, timeout time.Duration) *AuditCatalogJob {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &AuditCatalogJob{
		catalog: repo,
		logger:  logger,
		timeout: timeout,
	}
}

// Name returns the unique job name.
func (j *AuditCatalogJob) Name() string {
	return "audit_catalog"
}

// Description returns a human-readable description.
func (j *AuditCatalogJob) Description() string {
	return "Checks course ordering contiguity for every track"
}

// Run walks all paths and tracks and validates each track's ordering.
func (j *AuditCatalogJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	paths, err := j.catalog.ListPaths(ctx)
	if err != nil {
		return fmt.Errorf("audit_catalog: list paths: %w", err)
	}

	tracksChecked := 0
	broken := 0

	for _, path := range paths {
		tracks, err := j.catalog.ListPathTracks(ctx, path.ID)
		if err != nil {
			return fmt.Errorf("audit_catalog: list tracks of path %s: %w", path.ID, err)
		}

		for _, track := range tracks {
			courses, err := j.catalog.ListTrackCourses(ctx, track.ID)
			if err != nil {
				return fmt.Errorf("audit_catalog: list courses of track %s: %w", track.ID, err)
			}

			tracksChecked++
			if err := catalog.ValidateTrackOrder(courses); err != nil {
				broken++
				j.logger.Error("track ordering broken",
					"track_id", track.ID,
					"track_name", track.Name,
					"courses", len(courses),
					"error", err,
				)
			}
		}
	}

	if broken > 0 {
		return fmt.Errorf("audit_catalog: %d of %d tracks have broken ordering", broken, tracksChecked)
	}

	j.logger.Info("catalog audit passed", "tracks", tracksChecked)
	return nil
}
