package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// OfferByUser lets the actor apply to a team for role.
func (s *Service) OfferByUser(ctx context.Context, actorID, teamID uuid.UUID, role team.Role) (*offer.Offer, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("applying to team: %w: %q", team.ErrInvalidRole, role)
	}

	var out *offer.Offer
	err := s.run(ctx, "offer_by_user", func(tx Tx, notes *notification.Batch) error {
		if _, err := activeUser(ctx, tx, actorID); err != nil {
			return err
		}

		t, err := tx.Teams().GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if t.IsConcluded() {
			return team.ErrTeamConcluded
		}
		if t.IsRoleFull(role) {
			return team.ErrPositionUnavailable
		}

		_, err = tx.Members().GetCurrent(ctx, t.ID, actorID)
		switch {
		case err == nil:
			return membership.ErrExistingCurrentTeam
		case !errors.Is(err, membership.ErrTeamMemberNotFound):
			return err
		}

		o := offer.New(actorID, t.ID, role, offer.SideUser)
		if err := tx.Offers().Create(ctx, o); err != nil {
			return err
		}

		members, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}
		if leader, ok := leaderOf(members); ok {
			notes.OfferReceived(leader, t.ID, t.ProjectName, false)
		}

		out = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying to team: %w", err)
	}
	return out, nil
}

// OfferByTeam lets the leader of the actor's team invite a candidate for role.
// The candidate must be seeking a team and have no current team.
func (s *Service) OfferByTeam(ctx context.Context, actorID, candidateID uuid.UUID, role team.Role) (*offer.Offer, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("inviting user: %w: %q", team.ErrInvalidRole, role)
	}

	var out *offer.Offer
	err := s.run(ctx, "offer_by_team", func(tx Tx, notes *notification.Batch) error {
		t, _, err := leaderTeam(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if t.IsRoleFull(role) {
			return team.ErrPositionUnavailable
		}

		if _, err := tx.Users().FindSeekingTeam(ctx, candidateID); err != nil {
			return err
		}
		busy, err := tx.Members().ExistsCurrent(ctx, candidateID)
		if err != nil {
			return err
		}
		if busy {
			return membership.ErrExistingCurrentTeam
		}

		o := offer.New(candidateID, t.ID, role, offer.SideTeamLeader)
		if err := tx.Offers().Create(ctx, o); err != nil {
			return err
		}
		notes.OfferReceived(candidateID, t.ID, t.ProjectName, true)

		out = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inviting user: %w", err)
	}
	return out, nil
}

// Decide accepts or declines an offer on behalf of side. Only the party that
// did not initiate the offer may decide it. Accepting rechecks the position
// under the team lock, creates the membership and cancels the remaining
// pending offers between the same user and team.
func (s *Service) Decide(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side, accept bool) (*offer.Offer, error) {
	var out *offer.Offer
	err := s.run(ctx, "decide_offer", func(tx Tx, notes *notification.Batch) error {
		// The offer names the team to lock; it is read again under the lock.
		peek, err := tx.Offers().GetByID(ctx, offerID)
		if err != nil {
			return err
		}
		t, err := tx.Teams().GetForUpdate(ctx, peek.TeamID)
		if err != nil {
			if errors.Is(err, team.ErrTeamNotFound) {
				return offer.ErrOfferNotFound
			}
			return err
		}

		o, err := authorizeOffer(ctx, tx, actorID, offerID, side)
		if err != nil {
			return err
		}
		if !o.DecidableBy(side) {
			return offer.ErrOfferNotFound
		}

		members, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}

		if !accept {
			if err := o.Decline(s.now()); err != nil {
				return err
			}
			if err := tx.Offers().Update(ctx, o); err != nil {
				return err
			}
			recipient := o.UserID
			if o.Initiator == offer.SideTeamLeader {
				leader, ok := leaderOf(members)
				if !ok {
					out = o
					return nil
				}
				recipient = leader
			}
			notes.OfferDeclined(recipient, t.ID, t.ProjectName)
			out = o
			return nil
		}

		if err := s.accept(ctx, tx, t, o); err != nil {
			return err
		}

		u, err := tx.Users().GetByID(ctx, o.UserID)
		if err != nil {
			return err
		}
		notes.MemberJoined(o.UserID, u.Name, append(memberIDs(members), o.UserID), t.ID, t.ProjectName)

		out = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deciding offer: %w", err)
	}
	return out, nil
}

// accept turns a pending offer into a membership. t must be locked.
func (s *Service) accept(ctx context.Context, tx Tx, t *team.Team, o *offer.Offer) error {
	if t.IsConcluded() {
		return team.ErrTeamConcluded
	}
	if t.IsRoleFull(o.Role) {
		return team.ErrPositionUnavailable
	}
	if _, err := activeUser(ctx, tx, o.UserID); err != nil {
		return err
	}
	busy, err := tx.Members().ExistsCurrent(ctx, o.UserID)
	if err != nil {
		return err
	}
	if busy {
		return membership.ErrExistingCurrentTeam
	}

	now := s.now()
	if err := o.Accept(now); err != nil {
		return err
	}
	if err := tx.Offers().Update(ctx, o); err != nil {
		return err
	}

	if err := t.Join(o.Role); err != nil {
		return err
	}
	if err := tx.Teams().Update(ctx, t); err != nil {
		return err
	}
	if err := tx.Members().Create(ctx, membership.New(t.ID, o.UserID, o.Role, false)); err != nil {
		return err
	}

	if _, err := tx.Offers().CancelPending(ctx, o.UserID, t.ID, o.ID, now); err != nil {
		return err
	}
	return tx.Users().SetSeekingTeam(ctx, o.UserID, false)
}

// Cancel withdraws an offer. Only its initiator may cancel it.
func (s *Service) Cancel(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side) (*offer.Offer, error) {
	var out *offer.Offer
	err := s.run(ctx, "cancel_offer", func(tx Tx, _ *notification.Batch) error {
		o, err := authorizeOffer(ctx, tx, actorID, offerID, side)
		if err != nil {
			return err
		}
		if !o.CancellableBy(side) {
			return offer.ErrOfferNotFound
		}
		if err := o.Cancel(s.now()); err != nil {
			return err
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancelling offer: %w", err)
	}
	return out, nil
}

// authorizeOffer locks the offer and checks that the actor speaks for side:
// the candidate for the user side, the team's current leader for the team
// side. Offers of other parties are reported as not found.
func authorizeOffer(ctx context.Context, tx Tx, actorID, offerID uuid.UUID, side offer.Side) (*offer.Offer, error) {
	if !side.Valid() {
		return nil, offer.ErrOfferNotFound
	}

	o, err := tx.Offers().GetForUpdate(ctx, offerID)
	if err != nil {
		return nil, err
	}

	switch side {
	case offer.SideUser:
		if o.UserID != actorID {
			return nil, offer.ErrOfferNotFound
		}
	case offer.SideTeamLeader:
		m, err := tx.Members().GetCurrent(ctx, o.TeamID, actorID)
		if err != nil {
			if errors.Is(err, membership.ErrTeamMemberNotFound) {
				return nil, offer.ErrOfferNotFound
			}
			return nil, err
		}
		if !m.IsLeader {
			return nil, ErrRequestForbidden
		}
	}
	return o, nil
}

// ListUserOffers lists offers addressed to or made by the actor.
func (s *Service) ListUserOffers(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error) {
	filter.UserID = &actorID
	filter.TeamID = nil

	var result *offer.ListResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		result, err = tx.Offers().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing user offers: %w", err)
	}
	return result, nil
}

// ListTeamOffers lists offers of the team the actor leads.
func (s *Service) ListTeamOffers(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error) {
	var result *offer.ListResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		m, err := tx.Members().GetCurrentByUser(ctx, actorID)
		if err != nil {
			return err
		}
		if !m.IsLeader {
			return ErrRequestForbidden
		}

		filter.TeamID = &m.TeamID
		filter.UserID = nil
		result, err = tx.Offers().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing team offers: %w", err)
	}
	return result, nil
}
