// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER LEARNER COMMAND
// Creates the account record. Session handling and login live outside this
// module - registration only persists the credential.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterLearnerCommand contains the data to register a new learner.
type RegisterLearnerCommand struct {
	Username string
	Email    string
	Password string
}

// Validate checks the command before any write happens.
func (c *RegisterLearnerCommand) Validate() error {
	if c.Username == "" {
		return shared.NewDomainError("learner", "Register", shared.ErrEmptyValue, "username is required")
	}
	if !learner.Username(c.Username).IsValid() {
		return shared.NewDomainError("learner", "Register", shared.ErrInvalidInput, "invalid username")
	}
	if !strings.Contains(c.Email, "@") {
		return shared.NewDomainError("learner", "Register", shared.ErrInvalidInput, "invalid email")
	}
	if len(c.Password) < 6 {
		return shared.NewDomainError("learner", "Register", shared.ErrInvalidInput, "password too short")
	}
	return nil
}

// RegisterLearnerResult contains the outcome of registration.
type RegisterLearnerResult struct {
	LearnerID string
	Username  string
}

// RegisterLearnerHandler handles learner registration.
type RegisterLearnerHandler struct {
	uow    port.UnitOfWork
	idGen  port.IDGenerator
	logger *logger.Logger
}

// NewRegisterLearnerHandler creates a new RegisterLearnerHandler.
func NewRegisterLearnerHandler(uow port.UnitOfWork, idGen port.IDGenerator, log *logger.Logger) *RegisterLearnerHandler {
	return &RegisterLearnerHandler{uow: uow, idGen: idGen, logger: log}
}

// Handle executes the command.
func (h *RegisterLearnerHandler) Handle(ctx context.Context, cmd RegisterLearnerCommand) (*RegisterLearnerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.WrapError("learner", "Register", shared.ErrInvalidInput, "failed to hash password", err)
	}

	now := time.Now().UTC()
	l := &learner.Learner{
		ID:           h.idGen.NewID(),
		Username:     learner.Username(cmd.Username),
		Email:        cmd.Email,
		PasswordHash: string(hash),
		XPPoints:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = h.uow.Execute(ctx, func(ctx context.Context, s port.Store) error {
		return s.Learners().Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("learner registered",
		logger.String("learner_id", l.ID),
		logger.String("username", cmd.Username),
	)

	return &RegisterLearnerResult{LearnerID: l.ID, Username: cmd.Username}, nil
}
