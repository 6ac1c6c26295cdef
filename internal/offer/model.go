package offer

import (
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/team"
)

// Side identifies which party of an offer is acting: the candidate user or
// the leader of the team.
type Side string

const (
	SideUser       Side = "USER"
	SideTeamLeader Side = "TEAM_LEADER"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideUser || s == SideTeamLeader
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideUser {
		return SideTeamLeader
	}
	return SideUser
}

// Decision is the outcome of an offer. PENDING is the only non-terminal value.
type Decision string

const (
	DecisionPending   Decision = "PENDING"
	DecisionAccepted  Decision = "ACCEPTED"
	DecisionDeclined  Decision = "DECLINED"
	DecisionCancelled Decision = "CANCELLED"
)

// Offer represents a row in the offers table.
type Offer struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TeamID    uuid.UUID
	Role      team.Role
	Initiator Side
	Decision  Decision
	DecidedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a pending offer.
func New(userID, teamID uuid.UUID, role team.Role, initiator Side) *Offer {
	return &Offer{
		UserID:    userID,
		TeamID:    teamID,
		Role:      role,
		Initiator: initiator,
		Decision:  DecisionPending,
	}
}

// IsPending reports whether the offer is still undecided.
func (o *Offer) IsPending() bool {
	return o.Decision == DecisionPending
}

// DecidableBy reports whether side may accept or decline the offer.
func (o *Offer) DecidableBy(side Side) bool {
	return o.IsPending() && o.Initiator.Other() == side
}

// CancellableBy reports whether side may withdraw the offer.
func (o *Offer) CancellableBy(side Side) bool {
	return o.IsPending() && o.Initiator == side
}

// Accept records a positive decision.
func (o *Offer) Accept(at time.Time) error {
	return o.decide(DecisionAccepted, at)
}

// Decline records a negative decision.
func (o *Offer) Decline(at time.Time) error {
	return o.decide(DecisionDeclined, at)
}

// Cancel withdraws the offer.
func (o *Offer) Cancel(at time.Time) error {
	return o.decide(DecisionCancelled, at)
}

// A decided offer no longer exists for any caller, so re-deciding it is
// reported as not found.
func (o *Offer) decide(d Decision, at time.Time) error {
	if !o.IsPending() {
		return ErrOfferNotFound
	}
	o.Decision = d
	o.DecidedAt = &at
	return nil
}
