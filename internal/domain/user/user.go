package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login. It deliberately
	// does not distinguish a missing account from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBlocked is returned when a blocked user attempts to authenticate.
	ErrBlocked = errors.New("user is blocked")
	// ErrNotAdmin is returned when a non-admin reaches an admin operation.
	ErrNotAdmin = errors.New("not authorized")
)

// Role partitions users into regular customers and administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account record. PasswordHash is opaque to this package; the
// Hasher collaborator owns its format.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Blocked      bool
	CreatedAt    time.Time
}

// Repository defines persistence operations for users.
type Repository interface {
	// Create persists a new user, failing with ErrEmailTaken on a
	// duplicate email.
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// SetBlocked flips the blocked flag and returns the updated user, or
	// ErrNotFound when no such user exists.
	SetBlocked(ctx context.Context, id string, blocked bool) (*User, error)
}

// Hasher is the credential-hashing collaborator.
type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns a non-nil error when password does not match hash.
	Compare(hash, password string) error
}

// TokenIssuer is the token-issuing collaborator.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}
