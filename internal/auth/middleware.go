package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for one request.
type Principal struct {
	User  *domain.User
	Roles []domain.Role
}

// AuthMiddleware resolves the access token cookie into a request-scoped
// principal. It is advisory: a missing or bad token never fails the request,
// it only leaves the request anonymous. Route guards decide access.
type AuthMiddleware struct {
	tokens  *TokenManager
	cookies *CookieManager
	users   repository.UserRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, cookies *CookieManager, users repository.UserRepository, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, cookies: cookies, users: users, logger: logger, metrics: metrics}
}

// Handle runs the single-pass authentication pipeline for the request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); ok {
		return c.Next()
	}

	token, ok := m.cookies.Extract(c)
	if !ok {
		m.record(observability.AuthOutcomeAnonymous)
		return c.Next()
	}

	subject, err := m.tokens.ExtractSubject(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			// Confirmed stale; evict so the next request omits it.
			m.cookies.Clear(c)
			m.logger.Warn("access token expired", zap.Error(err))
			m.record(observability.AuthOutcomeExpired)
		} else {
			m.logger.Warn("access token rejected", zap.Error(err))
			m.record(observability.AuthOutcomeRejected)
		}
		return c.Next()
	}
	if subject == "" {
		m.record(observability.AuthOutcomeRejected)
		return c.Next()
	}

	user, err := m.users.GetByUsername(c.Context(), subject)
	if err != nil {
		// Unknown subject and transient store faults both degrade to
		// anonymous; the request itself still proceeds.
		m.logger.Debug("identity lookup failed", zap.String("subject", subject), zap.Error(err))
		m.record(observability.AuthOutcomeAnonymous)
		return c.Next()
	}

	if !m.tokens.IsValidFor(token, user.Username) {
		m.record(observability.AuthOutcomeRejected)
		return c.Next()
	}

	c.Locals(principalKey, &Principal{User: user, Roles: user.Roles()})
	m.record(observability.AuthOutcomeAuthenticated)
	return c.Next()
}

func (m *AuthMiddleware) record(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordAuthOutcome(outcome)
	}
}

// PrincipalFromContext retrieves the authenticated entity, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
