package user

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// RegisterInput holds the fields of a registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// ValidationError indicates a missing or malformed registration field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s is required", e.Field)
}

// Service implements registration and login on top of the credential and
// token collaborators.
type Service struct {
	users  Repository
	hasher Hasher
	tokens TokenIssuer
}

// NewService creates a user Service.
func NewService(users Repository, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Register creates a new customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	switch {
	case in.Email == "":
		return nil, &ValidationError{Field: "email"}
	case in.Password == "":
		return nil, &ValidationError{Field: "senha"}
	case in.FirstName == "":
		return nil, &ValidationError{Field: "primeiroNome"}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates a user and returns the account with a fresh access
// token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	return s.login(ctx, email, password, false)
}

// AdminLogin authenticates an administrator. A valid login by a non-admin
// account fails with ErrNotAdmin.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*User, string, error) {
	return s.login(ctx, email, password, true)
}

func (s *Service) login(ctx context.Context, email, password string, admin bool) (*User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if admin && u.Role != RoleAdmin {
		return nil, "", ErrNotAdmin
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if u.Blocked {
		return nil, "", ErrBlocked
	}

	tok, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, tok, nil
}
