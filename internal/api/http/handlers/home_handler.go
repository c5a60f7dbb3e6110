package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/auth"
)

// HomeHandler serves the authentication-aware home and public endpoints.
type HomeHandler struct{}

// NewHomeHandler returns a new handler instance.
func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Home handles GET /api/home. The payload differs depending on whether the
// pipeline resolved a principal; the route itself is open.
func (h *HomeHandler) Home(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.JSON(fiber.Map{
			"message":       "public home",
			"authenticated": false,
		})
	}

	return c.JSON(fiber.Map{
		"message":       "authenticated home",
		"authenticated": true,
		"user": fiber.Map{
			"id":       principal.User.ID,
			"username": principal.User.Username,
			"name":     principal.User.Name,
			"role":     principal.User.Role,
		},
	})
}

// PublicInfo handles GET /api/public/info.
func (h *HomeHandler) PublicInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "public endpoint",
		"timestamp": time.Now().UnixMilli(),
	})
}
