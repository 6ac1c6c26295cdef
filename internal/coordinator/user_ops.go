package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/team"
)

// SetSeeking toggles whether the actor is open to invitations. A user with a
// current team can only stop seeking.
func (s *Service) SetSeeking(ctx context.Context, actorID uuid.UUID, seeking bool) (*auth.User, error) {
	var out *auth.User
	err := s.run(ctx, "set_seeking", func(tx Tx, _ *notification.Batch) error {
		if _, err := activeUser(ctx, tx, actorID); err != nil {
			return err
		}
		if seeking {
			busy, err := tx.Members().ExistsCurrent(ctx, actorID)
			if err != nil {
				return err
			}
			if busy {
				return membership.ErrExistingCurrentTeam
			}
		}
		if err := tx.Users().SetSeekingTeam(ctx, actorID, seeking); err != nil {
			return err
		}
		u, err := tx.Users().GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting seeking: %w", err)
	}
	return out, nil
}

// SetPosition changes the actor's position. The position of a user with a
// current team is fixed by their membership and cannot change.
func (s *Service) SetPosition(ctx context.Context, actorID uuid.UUID, position team.Role) (*auth.User, error) {
	if !position.Valid() {
		return nil, fmt.Errorf("setting position: %w: %q", team.ErrInvalidRole, position)
	}

	var out *auth.User
	err := s.run(ctx, "set_position", func(tx Tx, _ *notification.Batch) error {
		if _, err := activeUser(ctx, tx, actorID); err != nil {
			return err
		}
		busy, err := tx.Members().ExistsCurrent(ctx, actorID)
		if err != nil {
			return err
		}
		if busy {
			return membership.ErrExistingCurrentTeam
		}
		if err := tx.Users().SetPosition(ctx, actorID, position); err != nil {
			return err
		}
		u, err := tx.Users().GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting position: %w", err)
	}
	return out, nil
}
