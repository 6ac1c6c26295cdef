package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrTeamNotFound is returned when a team record is not found or was disbanded.
var ErrTeamNotFound = errors.New("team not found")

// ErrPositionUnavailable is returned when the requested role has no open position.
var ErrPositionUnavailable = errors.New("team position unavailable")

// ErrCapacityBelowCurrent is wrapped by CapacityError.
var ErrCapacityBelowCurrent = errors.New("capacity below current headcount")

// ErrTeamConcluded is returned when reopening a disbanded or completed team.
var ErrTeamConcluded = errors.New("team has concluded")

// ErrInvalidRole is returned for a role outside the four team roles.
var ErrInvalidRole = errors.New("invalid role")

// CapacityError reports the role whose new maximum would fall below its
// current headcount.
type CapacityError struct {
	Role      Role
	Current   int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s capacity %d is below current headcount %d", strings.ToLower(string(e.Role)), e.Requested, e.Current)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityBelowCurrent
}

// Order selects the sort order of List.
type Order string

const (
	OrderCreated    Order = "created"
	OrderPopularity Order = "popularity"
)

// ListFilter holds optional filters and pagination for listing recruiting teams.
type ListFilter struct {
	Role  *Role // only teams with an open position for this role
	Order Order
	Page  int // default 1
	Limit int // default 20
}

// ListResult holds the result of a paginated list query.
type ListResult struct {
	Teams []Team
	Total int
	Page  int
	Limit int
}

// Repository provides persistence for the teams table.
type Repository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*Team, error)
	// GetForUpdate loads the team and holds its row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Team, error)
	Update(ctx context.Context, t *Team) error
	// IncrementVisits bumps the visit counter without taking the row lock.
	IncrementVisits(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}
