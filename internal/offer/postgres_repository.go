package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daap14/teamup/internal/database"
)

const offerColumns = "id, user_id, team_id, role, initiator, decision, decided_at, created_at, updated_at"

// PostgresRepository implements Repository on top of a pool or a transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(db database.Querier) Repository {
	return &PostgresRepository{db: db}
}

// Create inserts a new pending offer.
func (r *PostgresRepository) Create(ctx context.Context, o *Offer) error {
	query := `
		INSERT INTO offers (user_id, team_id, role, initiator, decision)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, o.UserID, o.TeamID, o.Role, o.Initiator, o.Decision).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting offer: %w", err)
	}

	return nil
}

// GetByID retrieves an offer by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	query := "SELECT " + offerColumns + " FROM offers WHERE id = $1"
	return r.getOne(ctx, query, id)
}

// GetForUpdate retrieves an offer by its ID and locks the row.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Offer, error) {
	query := "SELECT " + offerColumns + " FROM offers WHERE id = $1 FOR UPDATE"
	o, err := r.getOne(ctx, query, id)
	if err != nil {
		return nil, database.MapLockError(err)
	}
	return o, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*Offer, error) {
	var o Offer
	err := scanOffer(r.db.QueryRow(ctx, query, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("querying offer: %w", err)
	}
	return &o, nil
}

// Update persists the decision of o.
func (r *PostgresRepository) Update(ctx context.Context, o *Offer) error {
	query := `
		UPDATE offers
		SET decision = $1, decided_at = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, o.Decision, o.DecidedAt, o.ID).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOfferNotFound
		}
		return fmt.Errorf("updating offer: %w", err)
	}

	return nil
}

// CancelPending cancels the remaining pending offers of a user/team pair.
func (r *PostgresRepository) CancelPending(ctx context.Context, userID, teamID, exceptID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE offers
		SET decision = 'CANCELLED', decided_at = $1, updated_at = NOW()
		WHERE user_id = $2 AND team_id = $3 AND id <> $4 AND decision = 'PENDING'`

	tag, err := r.db.Exec(ctx, query, at, userID, teamID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("cancelling pending offers: %w", err)
	}

	return tag.RowsAffected(), nil
}

// List retrieves offers matching the filter, newest first, with pagination.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var conditions []string
	var args []any
	argIdx := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.TeamID != nil {
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", argIdx))
		args = append(args, *filter.TeamID)
		argIdx++
	}
	if filter.Initiator != nil {
		conditions = append(conditions, fmt.Sprintf("initiator = $%d", argIdx))
		args = append(args, *filter.Initiator)
		argIdx++
	}
	if filter.Decision != nil {
		conditions = append(conditions, fmt.Sprintf("decision = $%d", argIdx))
		args = append(args, *filter.Decision)
		argIdx++
	}
	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, *filter.Role)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM offers " + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting offers: %w", err)
	}

	offset := (page - 1) * limit
	listQuery := fmt.Sprintf(
		"SELECT %s FROM offers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		offerColumns, where, argIdx, argIdx+1,
	)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	defer rows.Close()

	offers := []Offer{}
	for rows.Next() {
		var o Offer
		if err := scanOffer(rows, &o); err != nil {
			return nil, fmt.Errorf("scanning offer row: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating offer rows: %w", err)
	}

	return &ListResult{
		Offers: offers,
		Total:  total,
		Page:   page,
		Limit:  limit,
	}, nil
}

func scanOffer(row pgx.Row, o *Offer) error {
	return row.Scan(&o.ID, &o.UserID, &o.TeamID, &o.Role, &o.Initiator, &o.Decision, &o.DecidedAt, &o.CreatedAt, &o.UpdatedAt)
}
