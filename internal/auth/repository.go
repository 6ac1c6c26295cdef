package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/team"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrUserRevoked is returned when attempting to operate on a revoked user.
var ErrUserRevoked = errors.New("user is revoked")

// ListFilter holds optional filters for listing users.
type ListFilter struct {
	SeekingOnly bool
	Position    *team.Role
}

// UserRepository provides operations on the users table.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByPrefix(ctx context.Context, prefix string) ([]User, error)
	// FindSeekingTeam returns the active user only if they are seeking a
	// team; otherwise ErrUserNotFound.
	FindSeekingTeam(ctx context.Context, id uuid.UUID) (*User, error)
	SetSeekingTeam(ctx context.Context, id uuid.UUID, seeking bool) error
	SetPosition(ctx context.Context, id uuid.UUID, position team.Role) error
	List(ctx context.Context, filter ListFilter) ([]User, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	CountAll(ctx context.Context) (int, error)
}
