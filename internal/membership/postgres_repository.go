package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daap14/teamup/internal/database"
)

// currentMemberIndex is the partial unique index enforcing one PROGRESS
// membership per user.
const currentMemberIndex = "team_members_one_current_per_user"

// PostgresRepository implements Repository on top of a pool or a transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(db database.Querier) Repository {
	return &PostgresRepository{db: db}
}

// Create inserts a new membership record.
func (r *PostgresRepository) Create(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role, is_leader, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, m.TeamID, m.UserID, m.Role, m.IsLeader, m.Status).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, currentMemberIndex) {
			return ErrExistingCurrentTeam
		}
		return fmt.Errorf("inserting team member: %w", err)
	}

	return nil
}

// GetCurrentByUser retrieves the user's PROGRESS membership.
func (r *PostgresRepository) GetCurrentByUser(ctx context.Context, userID uuid.UUID) (*Membership, error) {
	query := `
		SELECT id, team_id, user_id, role, is_leader, status, created_at, updated_at
		FROM team_members
		WHERE user_id = $1 AND status = 'PROGRESS'`

	m, err := r.scanOne(ctx, query, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCurrentTeamNotFound
	}
	return m, err
}

// GetCurrent retrieves the user's PROGRESS membership in the given team.
func (r *PostgresRepository) GetCurrent(ctx context.Context, teamID, userID uuid.UUID) (*Membership, error) {
	query := `
		SELECT id, team_id, user_id, role, is_leader, status, created_at, updated_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2 AND status = 'PROGRESS'`

	m, err := r.scanOne(ctx, query, teamID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTeamMemberNotFound
	}
	return m, err
}

// ExistsCurrent reports whether the user has a PROGRESS membership.
func (r *PostgresRepository) ExistsCurrent(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM team_members WHERE user_id = $1 AND status = 'PROGRESS')",
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking current membership: %w", err)
	}
	return exists, nil
}

// ListCurrentByTeam retrieves the PROGRESS memberships of a team, leader first.
func (r *PostgresRepository) ListCurrentByTeam(ctx context.Context, teamID uuid.UUID) ([]Membership, error) {
	query := `
		SELECT id, team_id, user_id, role, is_leader, status, created_at, updated_at
		FROM team_members
		WHERE team_id = $1 AND status = 'PROGRESS'
		ORDER BY is_leader DESC, created_at ASC`

	rows, err := r.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	members := []Membership{}
	for rows.Next() {
		var m Membership
		if err := scanMembership(rows, &m); err != nil {
			return nil, fmt.Errorf("scanning team member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team member rows: %w", err)
	}

	return members, nil
}

// UpdateStatus persists the status of m.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, m *Membership) error {
	query := `
		UPDATE team_members
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, m.Status, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTeamMemberNotFound
		}
		return fmt.Errorf("updating team member status: %w", err)
	}

	return nil
}

// scanOne returns pgx.ErrNoRows unwrapped so callers can pick their own
// not-found error.
func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Membership, error) {
	var m Membership
	err := scanMembership(r.db.QueryRow(ctx, query, args...), &m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("querying team member: %w", err)
	}
	return &m, nil
}

func scanMembership(row pgx.Row, m *Membership) error {
	return row.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.IsLeader, &m.Status, &m.CreatedAt, &m.UpdatedAt)
}
