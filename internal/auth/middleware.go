package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// AuthMiddleware rejects requests without a valid access token.
type AuthMiddleware struct {
	verifier *TokenVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier *TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := ExtractToken(FiberCarrier{Ctx: c})
	if !ok {
		return apperrors.NewMissingToken()
	}

	claims, err := m.verifier.VerifyAccess(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// ClaimsFromContext retrieves the verified claims of the caller.
func ClaimsFromContext(c *fiber.Ctx) (*domain.TokenClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*domain.TokenClaims)
	return claims, ok && claims != nil
}
