package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// FormTeam creates a team led by the actor, who takes the position of their
// own role.
func (s *Service) FormTeam(ctx context.Context, actorID uuid.UUID, in TeamInput) (*TeamDetail, error) {
	var detail *TeamDetail
	err := s.run(ctx, "form_team", func(tx Tx, _ *notification.Batch) error {
		u, err := activeUser(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if !u.HasPosition() {
			return ErrNonExistingPosition
		}

		busy, err := tx.Members().ExistsCurrent(ctx, actorID)
		if err != nil {
			return err
		}
		if busy {
			return membership.ErrExistingCurrentTeam
		}

		t := team.New(in.Profile, in.MaxByRole)
		if err := t.Join(*u.Position); err != nil {
			return err
		}
		if err := tx.Teams().Create(ctx, t); err != nil {
			return err
		}

		leader := membership.New(t.ID, actorID, *u.Position, true)
		if err := tx.Members().Create(ctx, leader); err != nil {
			return err
		}
		if err := tx.Users().SetSeekingTeam(ctx, actorID, false); err != nil {
			return err
		}

		detail = &TeamDetail{Team: t, Members: []membership.Membership{*leader}}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("forming team: %w", err)
	}
	return detail, nil
}

// UpdateTeam changes the profile and role capacities of the actor's team.
func (s *Service) UpdateTeam(ctx context.Context, actorID uuid.UUID, in TeamInput) (*TeamDetail, error) {
	var detail *TeamDetail
	err := s.run(ctx, "update_team", func(tx Tx, notes *notification.Batch) error {
		t, _, err := leaderTeam(ctx, tx, actorID)
		if err != nil {
			return err
		}

		if err := t.UpdateCapacity(in.MaxByRole); err != nil {
			return err
		}
		t.UpdateProfile(in.Profile)
		if err := tx.Teams().Update(ctx, t); err != nil {
			return err
		}

		members, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}
		notes.ProfileUpdated(actorID, memberIDs(members), t.ID, t.ProjectName)

		detail = &TeamDetail{Team: t, Members: members}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating team: %w", err)
	}
	return detail, nil
}

// SetRecruiting opens or closes the actor's team to new offers.
func (s *Service) SetRecruiting(ctx context.Context, actorID uuid.UUID, recruiting bool) (*team.Team, error) {
	var out *team.Team
	err := s.run(ctx, "set_recruiting", func(tx Tx, _ *notification.Batch) error {
		t, _, err := leaderTeam(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := t.SetRecruiting(recruiting); err != nil {
			return err
		}
		if err := tx.Teams().Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting recruiting: %w", err)
	}
	return out, nil
}

// VisitTeam returns a team for display. Views by non-members are counted.
func (s *Service) VisitTeam(ctx context.Context, actorID, teamID uuid.UUID) (*TeamDetail, error) {
	var detail *TeamDetail
	err := s.run(ctx, "visit_team", func(tx Tx, _ *notification.Batch) error {
		t, err := tx.Teams().GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		members, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}

		isMember := false
		for _, m := range members {
			if m.UserID == actorID {
				isMember = true
				break
			}
		}
		if !isMember {
			if err := tx.Teams().IncrementVisits(ctx, t.ID); err != nil {
				return err
			}
			t.Visit()
		}

		pending := offer.DecisionPending
		offers, err := tx.Offers().List(ctx, offer.ListFilter{
			UserID:   &actorID,
			TeamID:   &t.ID,
			Decision: &pending,
			Limit:    100,
		})
		if err != nil {
			return err
		}

		detail = &TeamDetail{Team: t, Members: members, PendingOffers: offers.Offers}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("visiting team: %w", err)
	}
	return detail, nil
}

// CurrentTeam returns the team the actor currently belongs to.
func (s *Service) CurrentTeam(ctx context.Context, actorID uuid.UUID) (*TeamDetail, error) {
	var detail *TeamDetail
	err := s.store.InTx(ctx, func(tx Tx) error {
		m, err := tx.Members().GetCurrentByUser(ctx, actorID)
		if err != nil {
			return err
		}
		t, err := tx.Teams().GetByID(ctx, m.TeamID)
		if err != nil {
			return err
		}
		members, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}
		detail = &TeamDetail{Team: t, Members: members}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading current team: %w", err)
	}
	return detail, nil
}

// EndProject concludes the actor's team. A blank projectURL disbands the team
// and leaves every member INCOMPLETE; otherwise the team is completed and
// every member is COMPLETE. All members start seeking a team again.
func (s *Service) EndProject(ctx context.Context, actorID uuid.UUID, projectURL string) (*team.Team, error) {
	var out *team.Team
	err := s.run(ctx, "end_project", func(tx Tx, notes *notification.Batch) error {
		t, _, err := leaderTeam(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if t.IsConcluded() {
			return team.ErrTeamConcluded
		}

		members, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}

		projectURL = strings.TrimSpace(projectURL)
		complete := projectURL != ""

		for i := range members {
			m := &members[i]
			if complete {
				err = m.Complete()
			} else {
				err = m.Incomplete()
			}
			if err != nil {
				return err
			}
			if err := tx.Members().UpdateStatus(ctx, m); err != nil {
				return err
			}
			if err := tx.Users().SetSeekingTeam(ctx, m.UserID, true); err != nil {
				return err
			}
		}

		ids := memberIDs(members)
		if complete {
			t.Complete(projectURL, s.now())
			notes.TeamComplete(ids, t.ID, t.ProjectName)
		} else {
			t.Disband()
			notes.TeamIncomplete(ids, t.ID, t.ProjectName)
		}
		if err := tx.Teams().Update(ctx, t); err != nil {
			return err
		}

		out = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ending project: %w", err)
	}
	return out, nil
}

// Fire removes a member from the actor's team.
func (s *Service) Fire(ctx context.Context, actorID, targetID uuid.UUID) error {
	err := s.run(ctx, "fire", func(tx Tx, notes *notification.Batch) error {
		t, _, err := leaderTeam(ctx, tx, actorID)
		if err != nil {
			return err
		}

		target, err := tx.Members().GetCurrent(ctx, t.ID, targetID)
		if err != nil {
			return err
		}
		if err := target.Fire(); err != nil {
			return err
		}

		name, err := s.leave(ctx, tx, t, target)
		if err != nil {
			return err
		}

		remaining, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}
		notes.MemberFired(targetID, name, memberIDs(remaining), t.ID, t.ProjectName)
		return nil
	})
	if err != nil {
		return fmt.Errorf("firing member: %w", err)
	}
	return nil
}

// Quit removes the actor from their current team.
func (s *Service) Quit(ctx context.Context, actorID uuid.UUID) error {
	err := s.run(ctx, "quit", func(tx Tx, notes *notification.Batch) error {
		current, err := tx.Members().GetCurrentByUser(ctx, actorID)
		if err != nil {
			return err
		}
		t, m, err := lockMemberTeam(ctx, tx, current.TeamID, actorID)
		if err != nil {
			return err
		}
		if err := m.Quit(); err != nil {
			return err
		}

		name, err := s.leave(ctx, tx, t, m)
		if err != nil {
			return err
		}

		remaining, err := tx.Members().ListCurrentByTeam(ctx, t.ID)
		if err != nil {
			return err
		}
		notes.MemberQuit(actorID, name, memberIDs(remaining), t.ID, t.ProjectName)
		return nil
	})
	if err != nil {
		return fmt.Errorf("quitting team: %w", err)
	}
	return nil
}

// leave persists a FIRED or QUIT membership, frees its position and returns
// the departing user's name.
func (s *Service) leave(ctx context.Context, tx Tx, t *team.Team, m *membership.Membership) (string, error) {
	if err := tx.Members().UpdateStatus(ctx, m); err != nil {
		return "", err
	}
	t.Leave(m.Role)
	if err := tx.Teams().Update(ctx, t); err != nil {
		return "", err
	}
	if err := tx.Users().SetSeekingTeam(ctx, m.UserID, true); err != nil {
		return "", err
	}

	u, err := tx.Users().GetByID(ctx, m.UserID)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}
