package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/team"
)

// User represents a row in the users table.
type User struct {
	ID            uuid.UUID
	Name          string
	Position      *team.Role // nil until the user picks a position
	IsSeekingTeam bool
	IsSuperuser   bool
	ApiKeyPrefix  string
	ApiKeyHash    string
	CreatedAt     time.Time
	RevokedAt     *time.Time
}

// HasPosition reports whether the user picked a position.
func (u *User) HasPosition() bool {
	return u.Position != nil && u.Position.Valid()
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID      uuid.UUID
	UserName    string
	IsSuperuser bool
}
