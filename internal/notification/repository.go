package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotificationNotFound is returned when a notification does not exist or
// belongs to another user.
var ErrNotificationNotFound = errors.New("notification not found")

// Outbox accepts notifications for later delivery.
type Outbox interface {
	Enqueue(ctx context.Context, items []Notification) error
}

// ListResult holds a page of notifications and the total count.
type ListResult struct {
	Notifications []Notification
	Total         int
	Page          int
	Limit         int
}

// Repository provides persistence for the notifications table.
type Repository interface {
	Outbox
	// ClaimUndispatched locks up to limit undelivered rows that have been
	// tried fewer than maxAttempts times. Rows locked by another dispatcher
	// are skipped.
	ClaimUndispatched(ctx context.Context, limit, maxAttempts int) ([]Notification, error)
	MarkDispatched(ctx context.Context, ids []uuid.UUID, at time.Time) error
	RecordFailure(ctx context.Context, ids []uuid.UUID) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, page, limit int) (*ListResult, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}

// Store runs fn with a Repository bound to a single transaction.
type Store interface {
	InTx(ctx context.Context, fn func(repo Repository) error) error
}
