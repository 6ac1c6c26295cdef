package team

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile holds the display-only attributes of a team.
type Profile struct {
	ProjectName        string
	ProjectDescription string
	Expectation        string
	OpenChatURL        string
}

// Team represents a row in the teams table.
type Team struct {
	ID uuid.UUID
	Profile
	ProjectURL   *string
	CompletedAt  *time.Time
	Capacity     Capacity
	IsRecruiting bool
	IsDeleted    bool
	VisitedCount int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a recruiting team with no members yet.
func New(profile Profile, maxByRole map[Role]int) *Team {
	c := NewCapacity(maxByRole)
	return &Team{
		Profile:      profile,
		Capacity:     c,
		IsRecruiting: !c.AllFull(),
	}
}

// IsRoleFull reports whether role has no open position.
func (t *Team) IsRoleFull(role Role) bool {
	return t.Capacity.IsFull(role)
}

// IsConcluded reports whether the team was disbanded or completed.
func (t *Team) IsConcluded() bool {
	return t.IsDeleted || t.CompletedAt != nil
}

// Join takes one position of role. Recruiting stops once every role is full.
func (t *Team) Join(role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if t.IsRoleFull(role) {
		return ErrPositionUnavailable
	}

	t.Capacity.increment(role)

	if t.Capacity.AllFull() {
		t.IsRecruiting = false
	}
	return nil
}

// Leave frees one position of role and always reopens recruiting, even if
// other roles remain full.
func (t *Team) Leave(role Role) {
	t.Capacity.decrement(role)
	t.IsRecruiting = true
}

// UpdateCapacity replaces the maximum of every role in newMax. No role may be
// lowered below its current headcount; on violation nothing changes and a
// *CapacityError naming the first offending role is returned. A change that
// leaves every role full stops recruiting.
func (t *Team) UpdateCapacity(newMax map[Role]int) error {
	next := t.Capacity.Clone()
	for _, r := range Roles {
		requested, ok := newMax[r]
		if !ok {
			continue
		}
		slot := next[r]
		if slot == nil {
			slot = &Slot{}
			next[r] = slot
		}
		if requested < slot.Current {
			return &CapacityError{Role: r, Current: slot.Current, Requested: requested}
		}
		slot.Max = requested
	}

	t.Capacity = next
	if t.Capacity.AllFull() {
		t.IsRecruiting = false
	}
	return nil
}

// UpdateProfile replaces the display attributes.
func (t *Team) UpdateProfile(p Profile) {
	t.Profile = p
}

// SetRecruiting toggles recruiting by hand. Concluded teams never recruit and
// a fully staffed team cannot be reopened.
func (t *Team) SetRecruiting(recruiting bool) error {
	if recruiting {
		if t.IsConcluded() {
			return ErrTeamConcluded
		}
		if t.Capacity.AllFull() {
			return ErrPositionUnavailable
		}
	}
	t.IsRecruiting = recruiting
	return nil
}

// Visit counts one profile view.
func (t *Team) Visit() {
	t.VisitedCount++
}

// Disband ends the team without a deliverable.
func (t *Team) Disband() {
	t.IsRecruiting = false
	t.IsDeleted = true
}

// Complete ends the team with a deliverable.
func (t *Team) Complete(projectURL string, completedAt time.Time) {
	t.ProjectURL = &projectURL
	t.CompletedAt = &completedAt
	t.IsRecruiting = false
}
