package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultCookieName is the cookie carrying the access token.
const DefaultCookieName = "accessToken"

// CookieManager writes and reads the access token cookie. It performs no
// token validation; it is transport only.
type CookieManager struct {
	name   string
	maxAge time.Duration
	secure bool
}

// NewCookieManager builds a manager. maxAge should match the token TTL so
// the cookie and the token expire together.
func NewCookieManager(name string, maxAge time.Duration, secure bool) *CookieManager {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieManager{name: name, maxAge: maxAge, secure: secure}
}

// Name returns the configured cookie name.
func (cm *CookieManager) Name() string {
	return cm.name
}

// Attach writes the token cookie on the response. Calling it again replaces
// the previous directive.
func (cm *CookieManager) Attach(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cm.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cm.maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cm.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Extract returns the token from the request cookies, if present.
func (cm *CookieManager) Extract(c *fiber.Ctx) (string, bool) {
	value := c.Cookies(cm.name)
	if value == "" {
		return "", false
	}
	return value, true
}

// Clear writes the deletion form of the cookie. Safe to call when no cookie
// was ever set.
func (cm *CookieManager) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     cm.name,
		Value:    "",
		Path:     "/",
		MaxAge:   0,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cm.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
