package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/metrics"
)

// DefaultMaxAttempts bounds how often a notification is retried.
const DefaultMaxAttempts = 5

// Dispatcher polls the outbox and hands committed notifications to a
// Publisher. Delivery failures are logged and retried on the next tick.
type Dispatcher struct {
	store       Store
	publisher   Publisher
	metrics     *metrics.Metrics
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

// NewDispatcher creates a new Dispatcher. m may be nil.
func NewDispatcher(store Store, publisher Publisher, m *metrics.Metrics, interval time.Duration, batchSize int) *Dispatcher {
	if batchSize < 1 {
		batchSize = 100
	}
	return &Dispatcher{
		store:       store,
		publisher:   publisher,
		metrics:     m,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
}

// Start runs the dispatch loop. It blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("dispatcher started", "interval", d.interval.String())
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain keeps dispatching while whole batches are delivered.
func (d *Dispatcher) drain(ctx context.Context) {
	for ctx.Err() == nil {
		delivered, err := d.DispatchOnce(ctx)
		if err != nil {
			slog.Error("dispatcher: dispatch round failed", "error", err)
			return
		}
		if delivered < d.batchSize {
			return
		}
	}
}

// DispatchOnce claims one batch, publishes it and records the results in the
// same transaction. It returns the number of delivered notifications.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	var deliveredCount, failedCount int

	err := d.store.InTx(ctx, func(repo Repository) error {
		batch, err := repo.ClaimUndispatched(ctx, d.batchSize, d.maxAttempts)
		if err != nil {
			return err
		}

		var delivered, failed []uuid.UUID
		for _, n := range batch {
			if err := d.publisher.Publish(ctx, n); err != nil {
				slog.Warn("dispatcher: failed to publish notification",
					"notification", n.ID,
					"kind", n.Kind,
					"attempt", n.Attempts+1,
					"error", err,
				)
				failed = append(failed, n.ID)
				continue
			}
			delivered = append(delivered, n.ID)
		}

		if err := repo.MarkDispatched(ctx, delivered, d.now()); err != nil {
			return err
		}
		if err := repo.RecordFailure(ctx, failed); err != nil {
			return err
		}
		deliveredCount, failedCount = len(delivered), len(failed)
		return nil
	})
	if err != nil {
		return 0, err
	}

	d.metrics.NotificationsDispatched(deliveredCount, failedCount)
	return deliveredCount, nil
}
