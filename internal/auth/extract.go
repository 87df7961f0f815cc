package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// AccessTokenCookie carries the access token when no usable header is sent.
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie carries the refresh token.
	RefreshTokenCookie = "refreshToken"
)

// TokenCarrier exposes the parts of a request a token may travel in.
type TokenCarrier interface {
	Header(name string) string
	Cookie(name string) string
}

// ExtractToken returns the bearer token from the Authorization header, falling back
// to the access token cookie. Browser clients send the literal "undefined" or "null"
// when they have no token; those count as absent.
func ExtractToken(carrier TokenCarrier) (string, bool) {
	if header := strings.TrimSpace(carrier.Header(fiber.HeaderAuthorization)); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" && !isPlaceholder(token) {
				return token, true
			}
		}
	}

	if token := strings.TrimSpace(carrier.Cookie(AccessTokenCookie)); token != "" && !isPlaceholder(token) {
		return token, true
	}
	return "", false
}

func isPlaceholder(token string) bool {
	return token == "undefined" || token == "null"
}

// FiberCarrier adapts a fiber request to TokenCarrier.
type FiberCarrier struct {
	Ctx *fiber.Ctx
}

func (f FiberCarrier) Header(name string) string { return f.Ctx.Get(name) }

func (f FiberCarrier) Cookie(name string) string { return f.Ctx.Cookies(name) }
