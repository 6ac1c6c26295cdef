package membership

import (
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/team"
)

// Status is the lifecycle state of a membership. PROGRESS is the only
// active state; every other state is terminal.
type Status string

const (
	StatusProgress   Status = "PROGRESS"
	StatusComplete   Status = "COMPLETE"
	StatusIncomplete Status = "INCOMPLETE"
	StatusFired      Status = "FIRED"
	StatusQuit       Status = "QUIT"
)

// Membership represents a row in the team_members table.
type Membership struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	UserID    uuid.UUID
	Role      team.Role
	IsLeader  bool
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an active membership. The caller is responsible for taking
// the matching position on the team.
func New(teamID, userID uuid.UUID, role team.Role, isLeader bool) *Membership {
	return &Membership{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		IsLeader: isLeader,
		Status:   StatusProgress,
	}
}

// IsActive reports whether the membership is in PROGRESS.
func (m *Membership) IsActive() bool {
	return m.Status == StatusProgress
}

// Complete marks the membership as part of a finished project.
func (m *Membership) Complete() error {
	return m.transition(StatusComplete)
}

// Incomplete marks the membership as part of a disbanded project.
func (m *Membership) Incomplete() error {
	return m.transition(StatusIncomplete)
}

// Fire removes a non-leader member on the leader's request.
func (m *Membership) Fire() error {
	if m.IsLeader {
		return ErrLeaderActionForbidden
	}
	return m.transition(StatusFired)
}

// Quit removes a non-leader member on their own request.
func (m *Membership) Quit() error {
	if m.IsLeader {
		return ErrLeaderActionForbidden
	}
	return m.transition(StatusQuit)
}

func (m *Membership) transition(to Status) error {
	if !m.IsActive() {
		return ErrNotInProgress
	}
	m.Status = to
	return nil
}
