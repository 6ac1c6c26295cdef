package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daap14/teamup/internal/database"
)

const teamColumns = `id, project_name, project_description, expectation, open_chat_url,
		       project_url, completed_at,
		       designer_current, designer_max, backend_current, backend_max,
		       frontend_current, frontend_max, manager_current, manager_max,
		       visited_count, is_recruiting, is_deleted, created_at, updated_at`

// PostgresRepository implements Repository on top of a pool or a transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(db database.Querier) Repository {
	return &PostgresRepository{db: db}
}

// Create inserts a new team record.
func (r *PostgresRepository) Create(ctx context.Context, t *Team) error {
	query := `
		INSERT INTO teams (project_name, project_description, expectation, open_chat_url,
		                   designer_current, designer_max, backend_current, backend_max,
		                   frontend_current, frontend_max, manager_current, manager_max,
		                   is_recruiting)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	d, b, f, m := t.Capacity.Slot(RoleDesigner), t.Capacity.Slot(RoleBackend), t.Capacity.Slot(RoleFrontend), t.Capacity.Slot(RoleManager)
	err := r.db.QueryRow(ctx, query,
		t.ProjectName, t.ProjectDescription, t.Expectation, t.OpenChatURL,
		d.Current, d.Max, b.Current, b.Max,
		f.Current, f.Max, m.Current, m.Max,
		t.IsRecruiting,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting team: %w", err)
	}

	return nil
}

// GetByID retrieves a single non-deleted team by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Team, error) {
	query := `SELECT ` + teamColumns + `
		FROM teams
		WHERE id = $1 AND is_deleted = FALSE`

	return r.scanOne(ctx, query, id)
}

// GetForUpdate retrieves a non-deleted team and locks its row. A lock wait
// beyond the transaction's lock_timeout yields database.ErrCurrentlyUnavailable.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Team, error) {
	query := `SELECT ` + teamColumns + `
		FROM teams
		WHERE id = $1 AND is_deleted = FALSE
		FOR UPDATE`

	t, err := r.scanOne(ctx, query, id)
	if err != nil {
		return nil, database.MapLockError(err)
	}
	return t, nil
}

// Update persists every mutable column of t.
func (r *PostgresRepository) Update(ctx context.Context, t *Team) error {
	query := `
		UPDATE teams
		SET project_name = $1, project_description = $2, expectation = $3, open_chat_url = $4,
		    project_url = $5, completed_at = $6,
		    designer_current = $7, designer_max = $8, backend_current = $9, backend_max = $10,
		    frontend_current = $11, frontend_max = $12, manager_current = $13, manager_max = $14,
		    visited_count = $15, is_recruiting = $16, is_deleted = $17, updated_at = NOW()
		WHERE id = $18
		RETURNING updated_at`

	d, b, f, m := t.Capacity.Slot(RoleDesigner), t.Capacity.Slot(RoleBackend), t.Capacity.Slot(RoleFrontend), t.Capacity.Slot(RoleManager)
	err := r.db.QueryRow(ctx, query,
		t.ProjectName, t.ProjectDescription, t.Expectation, t.OpenChatURL,
		t.ProjectURL, t.CompletedAt,
		d.Current, d.Max, b.Current, b.Max,
		f.Current, f.Max, m.Current, m.Max,
		t.VisitedCount, t.IsRecruiting, t.IsDeleted,
		t.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTeamNotFound
		}
		return database.MapLockError(fmt.Errorf("updating team: %w", err))
	}

	return nil
}

// IncrementVisits adds one to the visit counter of a non-deleted team.
func (r *PostgresRepository) IncrementVisits(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		"UPDATE teams SET visited_count = visited_count + 1 WHERE id = $1 AND is_deleted = FALSE", id)
	if err != nil {
		return fmt.Errorf("incrementing team visits: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// List retrieves a paginated list of recruiting teams, optionally only those
// with an open position for a role.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	conditions := []string{"is_deleted = FALSE", "completed_at IS NULL", "is_recruiting = TRUE"}
	if filter.Role != nil {
		if !filter.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *filter.Role)
		}
		col := strings.ToLower(string(*filter.Role))
		conditions = append(conditions, fmt.Sprintf("%s_current < %s_max", col, col))
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	orderBy := "created_at DESC"
	if filter.Order == OrderPopularity {
		orderBy = "visited_count DESC, created_at DESC"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM teams "+whereClause).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting teams: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	dataQuery := fmt.Sprintf(`SELECT %s
		FROM teams
		%s
		ORDER BY %s
		LIMIT $1 OFFSET $2`, teamColumns, whereClause, orderBy)

	rows, err := r.db.Query(ctx, dataQuery, filter.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	teams := []Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team rows: %w", err)
	}

	return &ListResult{
		Teams: teams,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Team, error) {
	t, err := scanTeam(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("querying team: %w", err)
	}
	return t, nil
}

func scanTeam(row pgx.Row) (*Team, error) {
	var (
		t          Team
		dCur, dMax int
		bCur, bMax int
		fCur, fMax int
		mCur, mMax int
	)
	err := row.Scan(
		&t.ID, &t.ProjectName, &t.ProjectDescription, &t.Expectation, &t.OpenChatURL,
		&t.ProjectURL, &t.CompletedAt,
		&dCur, &dMax, &bCur, &bMax,
		&fCur, &fMax, &mCur, &mMax,
		&t.VisitedCount, &t.IsRecruiting, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Capacity = Capacity{
		RoleDesigner: {Current: dCur, Max: dMax},
		RoleBackend:  {Current: bCur, Max: bMax},
		RoleFrontend: {Current: fCur, Max: fMax},
		RoleManager:  {Current: mCur, Max: mMax},
	}
	return &t, nil
}
