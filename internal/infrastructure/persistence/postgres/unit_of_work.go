package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/achievement"
	"github.com/kodefun/kodefun-platform/internal/domain/catalog"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// store bundles repositories over a single Querier, either the pool or one
// open transaction.
type store struct {
	learners     *LearnerRepository
	progress     *ProgressRepository
	catalog      *CatalogRepository
	achievements *AchievementRepository
}

func newStore(q Querier) *store {
	return &store{
		learners:     NewLearnerRepository(q),
		progress:     NewProgressRepository(q),
		catalog:      NewCatalogRepository(q),
		achievements: NewAchievementRepository(q),
	}
}

func (s *store) Learners() learner.Repository         { return s.learners }
func (s *store) Progress() learner.ProgressRepository { return s.progress }
func (s *store) Catalog() catalog.Repository          { return s.catalog }
func (s *store) Achievements() achievement.Repository { return s.achievements }

// UnitOfWork implements port.UnitOfWork on top of pgx transactions.
type UnitOfWork struct {
	conn      *Connection
	poolStore *store
}

// NewUnitOfWork creates a unit of work over the connection pool.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{
		conn:      conn,
		poolStore: newStore(conn.Pool()),
	}
}

// Execute runs fn inside one transaction. Serialization failures and
// deadlocks are reported as shared.ErrConcurrencyConflict so the caller can
// retry the whole unit.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, s port.Store) error) error {
	err := u.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, newStore(tx))
	})
	if err != nil {
		if IsSerializationFailure(err) {
			return shared.NewDomainError("persistence", "Execute", shared.ErrConcurrencyConflict,
				"transaction aborted by concurrent modification")
		}
		return err
	}
	return nil
}

// Store returns non-transactional repository access for read paths.
func (u *UnitOfWork) Store() port.Store {
	return u.poolStore
}
