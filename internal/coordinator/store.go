package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/database"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// UserDirectory is the view of users the coordinator needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
	FindSeekingTeam(ctx context.Context, id uuid.UUID) (*auth.User, error)
	SetSeekingTeam(ctx context.Context, id uuid.UUID, seeking bool) error
	SetPosition(ctx context.Context, id uuid.UUID, position team.Role) error
}

// Tx exposes repositories bound to one transaction.
type Tx interface {
	Teams() team.Repository
	Members() membership.Repository
	Offers() offer.Repository
	Users() UserDirectory
	Outbox() notification.Outbox
}

// Store opens transactions. A team row read with Teams().GetForUpdate stays
// locked until fn returns.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// PostgresStore runs every operation in a Postgres transaction with a
// bounded lock wait.
type PostgresStore struct {
	db          *database.DB
	lockTimeout time.Duration
}

// NewPostgresStore creates a Store on top of db. Waiting longer than
// lockTimeout for a team lock fails with database.ErrCurrentlyUnavailable.
func NewPostgresStore(db *database.DB, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

// InTx runs fn inside one transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithTx(ctx, s.lockTimeout, func(tx pgx.Tx) error {
		return fn(&pgTx{
			teams:   team.NewRepository(tx),
			members: membership.NewRepository(tx),
			offers:  offer.NewRepository(tx),
			users:   auth.NewRepository(tx),
			outbox:  notification.NewRepository(tx),
		})
	})
}

type pgTx struct {
	teams   team.Repository
	members membership.Repository
	offers  offer.Repository
	users   UserDirectory
	outbox  notification.Outbox
}

func (t *pgTx) Teams() team.Repository         { return t.teams }
func (t *pgTx) Members() membership.Repository { return t.members }
func (t *pgTx) Offers() offer.Repository       { return t.offers }
func (t *pgTx) Users() UserDirectory           { return t.users }
func (t *pgTx) Outbox() notification.Outbox    { return t.outbox }
