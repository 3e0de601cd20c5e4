// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the concrete implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/creationgoals/server/internal/model"
)

// UserRepository stores user accounts. Method names carry the User prefix
// because the sqlite implementation shares one receiver across all three
// repositories.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail matches case-insensitively: a@x.com and A@X.COM are
	// the same identity.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// ListUsers returns all users sorted by last name ascending.
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// GoalRepository stores creation goals.
type GoalRepository interface {
	Create(ctx context.Context, goal *model.CreationGoal) error
	GetByID(ctx context.Context, id string) (*model.CreationGoal, error)
	// ListByUser returns a user's goals ordered by creation number. With
	// publicOnly set, Private goals are filtered out.
	ListByUser(ctx context.Context, userID string, publicOnly bool) ([]model.CreationGoal, error)
	// ListPublic returns every Public goal across all users, newest first.
	ListPublic(ctx context.Context) ([]model.CreationGoal, error)
	// SearchPublic returns Public goals whose goal text contains the term,
	// matched case-insensitively, newest first.
	SearchPublic(ctx context.Context, term string) ([]model.CreationGoal, error)
	// Numbers returns the user's assigned creation numbers in ascending
	// order. The sequence assigner scans these for the first gap.
	Numbers(ctx context.Context, userID string) ([]int, error)
	// NumberExists is the assigner's defensive re-check for one candidate.
	NumberExists(ctx context.Context, userID string, number int) (bool, error)
	Update(ctx context.Context, goal *model.CreationGoal) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository stores server-side sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions past their expiry; returns
	// how many.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
