package auth

import (
	"context"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// Authenticator verifies username/password credentials against the user store.
type Authenticator struct {
	users repository.UserRepository
}

// NewAuthenticator constructs an authenticator.
func NewAuthenticator(users repository.UserRepository) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate resolves the user and checks the password. Unknown usernames
// and wrong passwords both fail with ErrBadCredentials so callers cannot
// enumerate accounts.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrBadCredentials
	}
	if user.Status != domain.UserStatusActive {
		return nil, ErrBadCredentials
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}
