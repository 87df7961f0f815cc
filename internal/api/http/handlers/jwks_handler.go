package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/auth"
)

// JWKSHandler publishes the public verification keys.
type JWKSHandler struct {
	set auth.JWKSet
}

// NewJWKSHandler publishes the public half of every given signing key.
func NewJWKSHandler(keys ...*auth.SigningKey) *JWKSHandler {
	set := auth.JWKSet{Keys: make([]auth.JWK, 0, len(keys))}
	for _, key := range keys {
		if key != nil && key.Private != nil {
			set.Keys = append(set.Keys, key.PublicJWK())
		}
	}
	return &JWKSHandler{set: set}
}

// KeySet handles GET /.well-known/jwks.json.
func (h *JWKSHandler) KeySet(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.JSON(h.set)
}
