package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// Signup and login failure modes surfaced to the boundary layer.
var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = auth.ErrBadCredentials
	ErrResetTokenInvalid  = errors.New("reset token expired or used")
)

// AuthService coordinates signup, login and password maintenance flows.
type AuthService struct {
	users         repository.UserRepository
	resets        repository.PasswordResetRepository
	authenticator *auth.Authenticator
	tokenMgr      *auth.TokenManager
	dispatcher    events.Dispatcher
	bcryptCost    int
	resetTTL      time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Authenticator     *auth.Authenticator
	TokenManager      *auth.TokenManager
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:         deps.UserRepo,
		resets:        deps.PasswordResetRepo,
		authenticator: deps.Authenticator,
		tokenMgr:      deps.TokenManager,
		dispatcher:    deps.Dispatcher,
		bcryptCost:    cfg.BcryptCost,
		resetTTL:      time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Signup creates a new account after uniqueness checks. The returned user
// carries the stored record; callers must sanitize before exposing it.
func (s *AuthService) Signup(ctx context.Context, username, email, name, password string) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.Username,
		events.UserRegisteredPayload{UserID: user.ID, Email: user.Email}))
	return user, nil
}

// Login verifies credentials and issues an access token. Both unknown
// usernames and wrong passwords fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, username,
			events.LoginFailedPayload{Reason: "invalid credentials"}))
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokenMgr.Issue(user.Username, auth.ExtraClaims{Role: user.Role, Email: user.Email})
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.Username, nil))
	return user, token, exp, nil
}

// Logout records the event. Tokens are stateless; the transport cookie is
// cleared at the HTTP boundary and a previously issued token stays valid
// until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, username string) {
	s.publish(ctx, events.NewEvent(events.EventUserLoggedOut, username, nil))
}

// RequestPasswordReset persists a reset token for the account with the given
// email. Unknown emails return no token but also no error, so responses do
// not disclose account existence.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, user.Username,
		events.PasswordResetRequestedPayload{ExpiresAt: token.ExpiresAt}))
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return ErrResetTokenInvalid
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, user.Username, nil))
	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies the current password before updating to a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, user.Username, nil))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
