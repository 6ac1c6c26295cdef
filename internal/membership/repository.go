package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCurrentTeamNotFound is returned when the user has no PROGRESS membership.
var ErrCurrentTeamNotFound = errors.New("current team not found")

// ErrTeamMemberNotFound is returned when the user is not a current member of the team.
var ErrTeamMemberNotFound = errors.New("team member not found")

// ErrExistingCurrentTeam is returned when the user already has a PROGRESS membership.
var ErrExistingCurrentTeam = errors.New("user already has a current team")

// ErrLeaderActionForbidden is returned when firing or quitting a team leader.
var ErrLeaderActionForbidden = errors.New("team leader cannot be fired or quit")

// ErrNotInProgress is returned when transitioning a terminal membership.
var ErrNotInProgress = errors.New("membership is not in progress")

// Repository provides persistence for the team_members table.
type Repository interface {
	// Create inserts m. A second PROGRESS membership for the same user
	// yields ErrExistingCurrentTeam.
	Create(ctx context.Context, m *Membership) error
	GetCurrentByUser(ctx context.Context, userID uuid.UUID) (*Membership, error)
	GetCurrent(ctx context.Context, teamID, userID uuid.UUID) (*Membership, error)
	ExistsCurrent(ctx context.Context, userID uuid.UUID) (bool, error)
	ListCurrentByTeam(ctx context.Context, teamID uuid.UUID) ([]Membership, error)
	UpdateStatus(ctx context.Context, m *Membership) error
}
