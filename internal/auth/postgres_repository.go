package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daap14/teamup/internal/database"
	"github.com/daap14/teamup/internal/team"
)

const userColumns = `id, name, position, is_seeking_team, is_superuser, api_key_prefix, api_key_hash,
		       created_at, revoked_at`

// PostgresRepository implements UserRepository on top of a pool or a transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewRepository creates a new UserRepository backed by the given querier.
func NewRepository(db database.Querier) UserRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, position, is_seeking_team, is_superuser, api_key_prefix, api_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		u.Name,
		u.Position,
		u.IsSeekingTeam,
		u.IsSuperuser,
		u.ApiKeyPrefix,
		u.ApiKeyHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its UUID, revoked or not.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	return r.getOne(ctx, query, id)
}

// FindSeekingTeam retrieves an active user who is looking for a team.
func (r *PostgresRepository) FindSeekingTeam(ctx context.Context, id uuid.UUID) (*User, error) {
	query := "SELECT " + userColumns + `
		FROM users
		WHERE id = $1 AND is_seeking_team = TRUE AND revoked_at IS NULL`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*User, error) {
	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, id), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// SetSeekingTeam updates the seeking flag of a user.
func (r *PostgresRepository) SetSeekingTeam(ctx context.Context, id uuid.UUID, seeking bool) error {
	result, err := r.db.Exec(ctx, "UPDATE users SET is_seeking_team = $1 WHERE id = $2", seeking, id)
	if err != nil {
		return fmt.Errorf("updating seeking flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPosition updates the position of a user.
func (r *PostgresRepository) SetPosition(ctx context.Context, id uuid.UUID, position team.Role) error {
	result, err := r.db.Exec(ctx, "UPDATE users SET position = $1 WHERE id = $2", position, id)
	if err != nil {
		return fmt.Errorf("updating position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindByPrefix returns active (non-revoked) users matching the given API key prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]User, error) {
	query := "SELECT " + userColumns + `
		FROM users
		WHERE api_key_prefix = $1 AND revoked_at IS NULL`

	return r.list(ctx, query, prefix)
}

// List retrieves users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	var conditions []string
	var args []any

	if filter.SeekingOnly {
		conditions = append(conditions, "is_seeking_team = TRUE AND revoked_at IS NULL")
	}
	if filter.Position != nil {
		args = append(args, *filter.Position)
		conditions = append(conditions, fmt.Sprintf("position = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + userColumns + " FROM users " + where + " ORDER BY created_at ASC"
	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// Revoke sets revoked_at on a user. Returns ErrUserNotFound if the user
// does not exist, and ErrUserRevoked if already revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET revoked_at = NOW(), is_seeking_team = FALSE
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoking user: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking user existence: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrUserRevoked
	}

	return nil
}

// CountAll returns the total number of users in the table (including revoked).
func (r *PostgresRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(
		&u.ID, &u.Name, &u.Position, &u.IsSeekingTeam, &u.IsSuperuser,
		&u.ApiKeyPrefix, &u.ApiKeyHash,
		&u.CreatedAt, &u.RevokedAt,
	)
}
