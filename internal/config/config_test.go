package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_REFRESH_TOKEN_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "auth-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:5501", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 365*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "localhost", cfg.Auth.CookieDomain)
	assert.Equal(t, 10, cfg.Auth.JWKSFetchesPerMin)
	assert.True(t, cfg.Postgres.RunMigrations)
	assert.True(t, cfg.Auth.RefreshSecretGenerated)
	assert.Len(t, cfg.Auth.RefreshSecret, 64)
}

func TestLoadKeepsConfiguredRefreshSecret(t *testing.T) {
	t.Setenv("AUTH_REFRESH_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Auth.RefreshSecret)
	assert.False(t, cfg.Auth.RefreshSecretGenerated)
}

func TestLoadProductionWithoutRefreshSecretFails(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_REFRESH_TOKEN_SECRET", "")
	t.Setenv("AUTH_PRIVATE_KEY_PATH", "certs/private.pem")

	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_REFRESH_TOKEN_SECRET")
}

func TestValidateRejectsEmptyRefreshSecret(t *testing.T) {
	cfg := Config{Auth: AuthConfig{
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		JWKSFetchTimeout: time.Second,
	}}
	assert.ErrorContains(t, cfg.Validate(), "AUTH_REFRESH_TOKEN_SECRET is required")

	cfg.Auth.RefreshSecret = "dev"
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("AUTH_JWKS_URL", "https://auth.example.com/.well-known/jwks.json")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "https://auth.example.com/.well-known/jwks.json", cfg.Auth.JWKSURL)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("AUTH_JWKS_FETCH_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateProductionRequiresKeyMaterial(t *testing.T) {
	cfg := Config{
		App: AppConfig{Env: "production"},
		Auth: AuthConfig{
			AccessTokenTTL:   time.Hour,
			RefreshTokenTTL:  24 * time.Hour,
			JWKSFetchTimeout: time.Second,
			RefreshSecret:    "short",
		},
	}
	assert.ErrorContains(t, cfg.Validate(), "AUTH_REFRESH_TOKEN_SECRET")

	cfg.Auth.RefreshSecret = "0123456789abcdef0123456789abcdef"
	assert.ErrorContains(t, cfg.Validate(), "AUTH_PRIVATE_KEY")

	cfg.Auth.PrivateKeyPath = "certs/private.pem"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvertedTTLs(t *testing.T) {
	cfg := Config{Auth: AuthConfig{
		AccessTokenTTL:   48 * time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		JWKSFetchTimeout: time.Second,
	}}
	assert.Error(t, cfg.Validate())
}
