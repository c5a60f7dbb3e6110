package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// fakeUserRepo is an in-memory stand-in for the Postgres repository.
type fakeUserRepo struct {
	users   map[string]*domain.User
	failAll bool
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.Username] = user
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if f.failAll {
		return errors.New("store unavailable")
	}
	user.ID = "id-" + user.Username
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if f.failAll {
		return errors.New("store unavailable")
	}
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if f.failAll {
		return nil, errors.New("store unavailable")
	}
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if f.failAll {
		return nil, errors.New("store unavailable")
	}
	if user, ok := f.users[username]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.failAll {
		return nil, errors.New("store unavailable")
	}
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	if f.failAll {
		return false, errors.New("store unavailable")
	}
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if f.failAll {
		return false, errors.New("store unavailable")
	}
	for _, user := range f.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func testUser(username string) *domain.User {
	return &domain.User{
		ID:       "id-" + username,
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Role:     domain.RoleUser,
		Status:   domain.UserStatusActive,
	}
}

type pipelineFixture struct {
	app     *fiber.App
	tokens  *TokenManager
	cookies *CookieManager
	repo    *fakeUserRepo
	metrics *observability.Metrics
}

func newPipelineFixture(t *testing.T, users ...*domain.User) *pipelineFixture {
	t.Helper()

	tokens := newTestTokenManager(2 * time.Hour)
	cookies := NewCookieManager("accessToken", 2*time.Hour, false)
	repo := newFakeUserRepo(users...)
	metrics := observability.NewMetrics()
	middleware := NewAuthMiddleware(tokens, cookies, repo, zap.NewNop(), metrics)

	app := fiber.New()
	app.Use(middleware.Handle)
	app.Get("/probe", func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(principal.User.Username)
	})

	return &pipelineFixture{app: app, tokens: tokens, cookies: cookies, repo: repo, metrics: metrics}
}

func (f *pipelineFixture) probe(t *testing.T, cookieValue string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if cookieValue != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: cookieValue})
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestPipelineNoCookie(t *testing.T) {
	f := newPipelineFixture(t, testUser("alice"))

	resp := f.probe(t, "")
	assert.Equal(t, "anonymous", readBody(t, resp))
	assert.Empty(t, resp.Cookies(), "no cookie directive should be written")
	assert.Equal(t, int64(1), f.metrics.AuthOutcome(observability.AuthOutcomeAnonymous))
}

func TestPipelineValidToken(t *testing.T) {
	f := newPipelineFixture(t, testUser("alice"))

	token, _, err := f.tokens.Issue("alice", ExtraClaims{Role: domain.RoleUser})
	require.NoError(t, err)

	resp := f.probe(t, token)
	assert.Equal(t, "alice", readBody(t, resp))
	assert.Equal(t, int64(1), f.metrics.AuthOutcome(observability.AuthOutcomeAuthenticated))
}

func TestPipelineExpiredTokenClearsCookie(t *testing.T) {
	f := newPipelineFixture(t, testUser("alice"))

	expired := signTestToken(t, testSecret, jwt.SigningMethodHS256, expiredClaims("alice"))

	resp := f.probe(t, expired)
	assert.Equal(t, "anonymous", readBody(t, resp))

	cookie := findCookie(t, resp, "accessToken")
	require.NotNil(t, cookie, "expiry must trigger a deletion directive")
	assert.Empty(t, cookie.Value)
	assert.Equal(t, int64(1), f.metrics.AuthOutcome(observability.AuthOutcomeExpired))
}

func TestPipelineTamperedTokenDoesNotClearCookie(t *testing.T) {
	f := newPipelineFixture(t, testUser("alice"))

	foreign := NewTokenManager("another-secret-entirely", time.Hour)
	tampered, _, err := foreign.Issue("alice", ExtraClaims{})
	require.NoError(t, err)

	resp := f.probe(t, tampered)
	assert.Equal(t, "anonymous", readBody(t, resp))
	assert.Nil(t, findCookie(t, resp, "accessToken"), "only confirmed expiry evicts the cookie")
	assert.Equal(t, int64(1), f.metrics.AuthOutcome(observability.AuthOutcomeRejected))
}

func TestPipelineUnknownSubject(t *testing.T) {
	f := newPipelineFixture(t) // empty store

	token, _, err := f.tokens.Issue("ghost", ExtraClaims{})
	require.NoError(t, err)

	resp := f.probe(t, token)
	assert.Equal(t, "anonymous", readBody(t, resp))
	assert.Nil(t, findCookie(t, resp, "accessToken"))
}

func TestPipelineStoreFaultFailsOpen(t *testing.T) {
	f := newPipelineFixture(t, testUser("alice"))
	f.repo.failAll = true

	token, _, err := f.tokens.Issue("alice", ExtraClaims{})
	require.NoError(t, err)

	// The request proceeds anonymously instead of erroring out.
	resp := f.probe(t, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "anonymous", readBody(t, resp))
}

func TestPipelinePassesThroughExistingPrincipal(t *testing.T) {
	tokens := newTestTokenManager(time.Hour)
	cookies := NewCookieManager("accessToken", time.Hour, false)
	repo := newFakeUserRepo(testUser("alice"))
	middleware := NewAuthMiddleware(tokens, cookies, repo, zap.NewNop(), nil)

	preset := testUser("preset")
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(principalKey, &Principal{User: preset, Roles: preset.Roles()})
		return c.Next()
	})
	app.Use(middleware.Handle)
	app.Get("/probe", func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(principal.User.Username)
	})

	token, _, err := tokens.Issue("alice", ExtraClaims{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "preset", readBody(t, resp))
}
