package offer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/team"
)

// ErrOfferNotFound is returned when an offer does not exist, is no longer
// pending, or does not belong to the caller's side.
var ErrOfferNotFound = errors.New("offer not found")

// ListFilter holds optional filters and pagination for listing offers.
type ListFilter struct {
	UserID    *uuid.UUID
	TeamID    *uuid.UUID
	Initiator *Side
	Decision  *Decision
	Role      *team.Role
	Page      int
	Limit     int
}

// ListResult holds a page of offers and the total count.
type ListResult struct {
	Offers []Offer
	Total  int
	Page   int
	Limit  int
}

// Repository provides persistence for the offers table.
type Repository interface {
	Create(ctx context.Context, o *Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Offer, error)
	// GetForUpdate reads and row-locks the offer.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Offer, error)
	Update(ctx context.Context, o *Offer) error
	// CancelPending cancels every pending offer between the user and the team
	// except exceptID and returns how many rows changed.
	CancelPending(ctx context.Context, userID, teamID, exceptID uuid.UUID, at time.Time) (int64, error)
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}
