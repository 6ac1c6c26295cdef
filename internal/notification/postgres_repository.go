package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daap14/teamup/internal/database"
)

const notificationColumns = "id, kind, recipient_id, team_id, title, body, is_read, dispatched_at, attempts, created_at"

// PostgresRepository implements Repository on top of a pool or a transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(db database.Querier) Repository {
	return &PostgresRepository{db: db}
}

// Enqueue inserts the notifications as undispatched rows.
func (r *PostgresRepository) Enqueue(ctx context.Context, items []Notification) error {
	query := `
		INSERT INTO notifications (kind, recipient_id, team_id, title, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for i := range items {
		n := &items[i]
		err := r.db.QueryRow(ctx, query, n.Kind, n.RecipientID, n.TeamID, n.Title, n.Body).
			Scan(&n.ID, &n.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting notification: %w", err)
		}
	}

	return nil
}

// ClaimUndispatched locks the oldest undelivered notifications.
func (r *PostgresRepository) ClaimUndispatched(ctx context.Context, limit, maxAttempts int) ([]Notification, error) {
	query := "SELECT " + notificationColumns + `
		FROM notifications
		WHERE dispatched_at IS NULL AND attempts < $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	return r.list(ctx, query, maxAttempts, limit)
}

// MarkDispatched records successful delivery.
func (r *PostgresRepository) MarkDispatched(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		"UPDATE notifications SET dispatched_at = $1, attempts = attempts + 1 WHERE id = ANY($2)",
		at, ids,
	)
	if err != nil {
		return fmt.Errorf("marking notifications dispatched: %w", err)
	}
	return nil
}

// RecordFailure counts one failed delivery attempt.
func (r *PostgresRepository) RecordFailure(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, "UPDATE notifications SET attempts = attempts + 1 WHERE id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("recording notification failure: %w", err)
	}
	return nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE recipient_id = $1", recipientID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting notifications: %w", err)
	}

	query := "SELECT " + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	items, err := r.list(ctx, query, recipientID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Notifications: items,
		Total:         total,
		Page:          page,
		Limit:         limit,
	}, nil
}

// MarkRead flags a notification of the recipient as read.
func (r *PostgresRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2",
		id, recipientID,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		var n Notification
		err := rows.Scan(&n.ID, &n.Kind, &n.RecipientID, &n.TeamID, &n.Title, &n.Body,
			&n.IsRead, &n.DispatchedAt, &n.Attempts, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}

	return items, nil
}

// PostgresStore runs dispatcher work in short transactions.
type PostgresStore struct {
	db *database.DB
}

// NewStore creates a Store on top of db.
func NewStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx runs fn inside one transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(repo Repository) error) error {
	return s.db.WithTx(ctx, 0, func(tx pgx.Tx) error {
		return fn(NewRepository(tx))
	})
}
