// Package port defines the interfaces the application layer needs from
// infrastructure: transactional storage access, identity generation, and the
// session collaborator notified of experience changes.
package port

import (
	"context"

	"github.com/kodefun/kodefun-platform/internal/domain/achievement"
	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
)

// Store bundles the repositories the engine works against. Inside a unit of
// work every repository operates on the same transaction.
type Store interface {
	Learners() learner.Repository
	Progress() learner.ProgressRepository
	Catalog() catalog.Repository
	Achievements() achievement.Repository
}

// UnitOfWork provides transactional execution. Execute runs fn inside one
// transaction: commit on nil, full rollback otherwise - no partial writes
// survive. Serialization failures and constraint races surface as
// shared.ErrConcurrencyConflict, which the caller retries once.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, s Store) error) error

	// Store returns non-transactional repository access for read paths.
	Store() Store
}

// SessionNotifier mirrors a learner's experience total into the session
// collaborator for display. The engine only notifies; it never reads session
// state back.
type SessionNotifier interface {
	NotifyXPChanged(ctx context.Context, learnerID string, newTotal int) error
}

// IDGenerator produces unique identifiers for new entities.
type IDGenerator interface {
	NewID() string
}
