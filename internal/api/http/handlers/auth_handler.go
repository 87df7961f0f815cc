package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// CookieConfig scopes the token cookies.
type CookieConfig struct {
	Domain string
	Secure bool
}

// AuthHandler exposes register, login, refresh, logout and self.
type AuthHandler struct {
	auth    *service.AuthService
	cookies CookieConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	h.setTokenCookies(c, res.Tokens)
	return c.Status(http.StatusCreated).JSON(dto.IDResponse{ID: res.User.ID})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	h.setTokenCookies(c, res.Tokens)
	return c.JSON(dto.IDResponse{ID: res.User.ID})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	res, err := h.auth.Refresh(c.UserContext(), c.Cookies(auth.RefreshTokenCookie))
	if err != nil {
		return err
	}

	h.setTokenCookies(c, res.Tokens)
	return c.JSON(dto.IDResponse{ID: res.User.ID})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)
	if err := h.auth.Logout(c.UserContext(), claims, c.Cookies(auth.RefreshTokenCookie)); err != nil {
		return err
	}

	h.clearTokenCookies(c)
	return c.SendStatus(http.StatusNoContent)
}

// Self handles GET /auth/self.
func (h *AuthHandler) Self(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}

	user, err := h.auth.Self(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSelfResponse(user))
}

// Sessions handles GET /auth/sessions.
func (h *AuthHandler) Sessions(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}

	records, err := h.auth.Sessions(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionsResponse(records)})
}

func (h *AuthHandler) setTokenCookies(c *fiber.Ctx, pair *domain.TokenPair) {
	c.Cookie(h.cookie(auth.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	c.Cookie(h.cookie(auth.RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (h *AuthHandler) clearTokenCookies(c *fiber.Ctx) {
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		cookie := h.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		c.Cookie(cookie)
	}
}

func (h *AuthHandler) cookie(name, value string, expires time.Time) *fiber.Cookie {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   maxAge,
		Expires:  expires,
		Secure:   h.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
