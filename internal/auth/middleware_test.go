package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

func newMiddlewareApp(t *testing.T, roles ...domain.Role) (*fiber.App, *TokenIssuer) {
	t.Helper()
	key, _ := testKeys(t)
	verifier := newTestVerifier(NewStaticKeySource(key), time.Now)
	middleware := NewAuthMiddleware(verifier)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Get("/protected", middleware.Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"sub": claims.Subject, "role": claims.Role})
	})
	return app, newTestIssuer(key, time.Now)
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Code
}

func TestAuthMiddlewareAcceptsHeaderAndCookie(t *testing.T) {
	app, issuer := newMiddlewareApp(t)
	token, _, err := issuer.GenerateAccessToken(domain.TokenClaims{Subject: "user-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer undefined")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "user-1", body["sub"])
	assert.Equal(t, "customer", body["role"])
}

func TestAuthMiddlewareRejects(t *testing.T) {
	app, _ := newMiddlewareApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperrors.CodeMissingToken, errorCode(t, resp))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInvalidToken, errorCode(t, resp))
}

func TestRequireRole(t *testing.T) {
	app, issuer := newMiddlewareApp(t, domain.RoleAdmin)

	customer, _, err := issuer.GenerateAccessToken(domain.TokenClaims{Subject: "user-1", Role: domain.RoleCustomer})
	require.NoError(t, err)
	admin, _, err := issuer.GenerateAccessToken(domain.TokenClaims{Subject: "user-2", Role: domain.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(4)

	digest, err := hasher.Hash("root@1234")
	require.NoError(t, err)
	assert.NotEqual(t, "root@1234", digest)

	ok, err := hasher.Compare("root@1234", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Compare("wrong-password", digest)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Compare("root@1234", "not-a-bcrypt-digest")
	assert.Error(t, err)
}
