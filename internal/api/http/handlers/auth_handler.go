package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/service"
)

// AuthHandler exposes signup, login, logout and session endpoints. Together
// with AuthService it owns the session lifecycle: the service verifies and
// issues, the handler moves tokens on and off the cookie.
type AuthHandler struct {
	authService *service.AuthService
	cookies     *auth.CookieManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies *auth.CookieManager) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.Signup(c.Context(), req.Username, req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) || errors.Is(err, service.ErrEmailTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return err
	}

	info := dto.NewUserInfo(user)
	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Success: true,
		Message: "signup complete",
		User:    &info,
	})
}

// Login handles POST /api/auth/login. On success the access token is set as
// an HttpOnly cookie; the token itself is never returned in the body.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, token, exp, err := h.authService.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, "invalid username or password")
		}
		return err
	}

	h.cookies.Attach(c, token)

	info := dto.NewUserInfo(user)
	return c.JSON(dto.AuthResponse{
		Success:   true,
		Message:   "login successful",
		User:      &info,
		ExpiresAt: &exp,
	})
}

// Logout handles POST /api/auth/logout. Always succeeds; the cookie is
// evicted client-side and the token simply ages out.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		h.authService.Logout(c.Context(), principal.User.Username)
	}
	h.cookies.Clear(c)

	return c.JSON(dto.AuthResponse{
		Success: true,
		Message: "logged out",
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	info := dto.NewUserInfo(principal.User)
	return c.JSON(dto.AuthResponse{
		Success: true,
		Message: "authenticated",
		User:    &info,
	})
}

// RequestPasswordReset handles POST /api/auth/password/reset/request.
// The response is identical whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(dto.AuthResponse{
		Success: true,
		Message: "if the email exists, a reset token has been issued",
	})
}

// ConfirmPasswordReset handles POST /api/auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(dto.AuthResponse{
		Success: true,
		Message: "password reset",
	})
}

// ChangePassword handles POST /api/auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Context(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusBadRequest, "current password incorrect")
		}
		return err
	}
	return c.JSON(dto.AuthResponse{
		Success: true,
		Message: "password changed",
	})
}
