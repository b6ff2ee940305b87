package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/varejo/shop-api/internal/domain/user"
)

const (
	createUserSQL = `INSERT INTO users (id, first_name, last_name, email, phone, password_hash, role, blocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getUserByEmailSQL = `SELECT id, first_name, last_name, email, phone, password_hash, role, blocked, created_at
		FROM users WHERE email = $1`

	getUserByIDSQL = `SELECT id, first_name, last_name, email, phone, password_hash, role, blocked, created_at
		FROM users WHERE id = $1`

	setUserBlockedSQL = `UPDATE users SET blocked = $2 WHERE id = $1
		RETURNING id, first_name, last_name, email, phone, password_hash, role, blocked, created_at`
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new user, mapping a duplicate email onto
// user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, createUserSQL,
		u.ID, u.FirstName, u.LastName, u.Email, u.Phone,
		u.PasswordHash, string(u.Role), u.Blocked,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetByEmail returns the user with the given email, or user.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.get(ctx, getUserByEmailSQL, email)
}

// GetByID returns the user with the given id, or user.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, getUserByIDSQL, id)
}

// SetBlocked flips the blocked flag, returning the updated user or
// user.ErrNotFound when the id matches no row.
func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) (*user.User, error) {
	rows, err := r.pool.Query(ctx, setUserBlockedSQL, id, blocked)
	if err != nil {
		return nil, fmt.Errorf("updating user block flag: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("updating user block flag: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) get(ctx context.Context, sql, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone,
		&u.PasswordHash, &role, &u.Blocked, &u.CreatedAt,
	)
	u.Role = user.Role(role)
	return u, err
}
