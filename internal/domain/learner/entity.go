// Package learner содержит доменную модель учащегося платформы KodeFun.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package learner

import (
	"strings"
	"time"

	"github.com/kodefun/kodefun-platform/internal/domain/shared"
)

// XP represents experience points. The total only ever grows: course
// completions and achievement bonuses add to it, nothing subtracts.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the XP total after adding a bonus.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Username represents a learner's unique username.
type Username string

// IsValid checks the username format.
func (u Username) IsValid() bool {
	s := string(u)
	return len(s) >= 2 && len(s) <= 50 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (u Username) String() string {
	return string(u)
}

// Learner is a registered platform user.
type Learner struct {
	ID           string
	Username     Username
	Email        string
	PasswordHash string
	XPPoints     XP
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks learner invariants.
func (l *Learner) Validate() error {
	if l.ID == "" {
		return shared.NewDomainError("learner", "Validate", shared.ErrInvalidID, "learner ID is required")
	}
	if !l.Username.IsValid() {
		return shared.NewDomainError("learner", "Validate", shared.ErrInvalidInput, "invalid username")
	}
	if !strings.Contains(l.Email, "@") {
		return shared.NewDomainError("learner", "Validate", shared.ErrInvalidInput, "invalid email")
	}
	if !l.XPPoints.IsValid() {
		return shared.NewDomainError("learner", "Validate", shared.ErrNegativeValue, "negative XP")
	}
	return nil
}

// AwardXP adds experience points and refreshes the update timestamp.
// It returns the new total.
func (l *Learner) AwardXP(amount XP, now time.Time) XP {
	if amount < 0 {
		return l.XPPoints
	}
	l.XPPoints = l.XPPoints.Add(amount)
	l.UpdatedAt = now
	return l.XPPoints
}
