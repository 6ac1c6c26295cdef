// Package coordinator enforces the invariants that span teams, memberships
// and offers. It is the only place that changes role capacity or creates and
// ends memberships. Each operation runs in one transaction that holds the
// team's row lock, and its notifications are written to the outbox in that
// same transaction.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/database"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/metrics"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// ErrRequestForbidden is returned when a non-leader attempts a leader-only action.
var ErrRequestForbidden = errors.New("request forbidden")

// ErrNonExistingPosition is returned when a user without a position forms a team.
var ErrNonExistingPosition = errors.New("user has no position")

// TeamInput carries the editable attributes of a team.
type TeamInput struct {
	Profile   team.Profile
	MaxByRole map[team.Role]int
}

// TeamDetail is a team with its current members.
type TeamDetail struct {
	Team    *team.Team
	Members []membership.Membership
	// PendingOffers holds the caller's pending offers with the team. Only
	// VisitTeam fills it.
	PendingOffers []offer.Offer
}

// Service coordinates membership changes.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a new Service. m may be nil.
func New(store Store, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		metrics: m,
		now:     time.Now,
	}
}

// run executes fn in a transaction, writes the collected notifications to the
// outbox before commit and records the outcome.
func (s *Service) run(ctx context.Context, op string, fn func(tx Tx, notes *notification.Batch) error) error {
	start := time.Now()
	var notes notification.Batch

	err := s.store.InTx(ctx, func(tx Tx) error {
		notes = notification.Batch{}
		if err := fn(tx, &notes); err != nil {
			return err
		}
		if notes.Len() == 0 {
			return nil
		}
		return tx.Outbox().Enqueue(ctx, notes.Items())
	})

	s.metrics.ObserveOperation(op, outcome(err), time.Since(start))
	if err == nil {
		for _, n := range notes.Items() {
			s.metrics.NotificationsEnqueued(string(n.Kind), 1)
		}
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, database.ErrCurrentlyUnavailable):
		return metrics.OutcomeUnavailable
	case IsRejection(err):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

var rejections = []error{
	auth.ErrUserNotFound,
	team.ErrTeamNotFound,
	team.ErrPositionUnavailable,
	team.ErrCapacityBelowCurrent,
	team.ErrTeamConcluded,
	team.ErrInvalidRole,
	membership.ErrCurrentTeamNotFound,
	membership.ErrTeamMemberNotFound,
	membership.ErrExistingCurrentTeam,
	membership.ErrLeaderActionForbidden,
	membership.ErrNotInProgress,
	offer.ErrOfferNotFound,
	ErrRequestForbidden,
	ErrNonExistingPosition,
}

// IsRejection reports whether err is a business rule violation rather than
// an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// activeUser loads a user that has not been revoked.
func activeUser(ctx context.Context, tx Tx, id uuid.UUID) (*auth.User, error) {
	u, err := tx.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.RevokedAt != nil {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

// leaderTeam locks the team the actor currently leads and returns it with the
// actor's membership. The membership is re-read under the lock.
func leaderTeam(ctx context.Context, tx Tx, actorID uuid.UUID) (*team.Team, *membership.Membership, error) {
	m, err := tx.Members().GetCurrentByUser(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !m.IsLeader {
		return nil, nil, ErrRequestForbidden
	}

	t, m, err := lockMemberTeam(ctx, tx, m.TeamID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !m.IsLeader {
		return nil, nil, ErrRequestForbidden
	}
	return t, m, nil
}

// lockMemberTeam locks teamID and returns the actor's membership in it.
func lockMemberTeam(ctx context.Context, tx Tx, teamID, actorID uuid.UUID) (*team.Team, *membership.Membership, error) {
	t, err := tx.Teams().GetForUpdate(ctx, teamID)
	if err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			return nil, nil, membership.ErrCurrentTeamNotFound
		}
		return nil, nil, err
	}

	m, err := tx.Members().GetCurrent(ctx, t.ID, actorID)
	if err != nil {
		if errors.Is(err, membership.ErrTeamMemberNotFound) {
			return nil, nil, membership.ErrCurrentTeamNotFound
		}
		return nil, nil, err
	}
	return t, m, nil
}

func memberIDs(members []membership.Membership) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func leaderOf(members []membership.Membership) (uuid.UUID, bool) {
	for _, m := range members {
		if m.IsLeader {
			return m.UserID, true
		}
	}
	return uuid.Nil, false
}
