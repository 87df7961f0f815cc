package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"auth-service"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"5501"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines token issuance and verification parameters.
type AuthConfig struct {
	Issuer            string        `env:"AUTH_ISSUER" envDefault:"auth-service"`
	PrivateKeyPath    string        `env:"AUTH_PRIVATE_KEY_PATH"`
	PrivateKeyPEM     string        `env:"AUTH_PRIVATE_KEY"`
	KeyID             string        `env:"AUTH_KEY_ID"`
	RefreshSecret     string        `env:"AUTH_REFRESH_TOKEN_SECRET"`
	AccessTokenTTL    time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL   time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"8760h"`
	BcryptCost        int           `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	JWKSURL           string        `env:"AUTH_JWKS_URL"`
	JWKSFetchTimeout  time.Duration `env:"AUTH_JWKS_FETCH_TIMEOUT" envDefault:"5s"`
	JWKSFetchesPerMin int           `env:"AUTH_JWKS_FETCHES_PER_MINUTE" envDefault:"10"`
	CookieDomain      string        `env:"AUTH_COOKIE_DOMAIN" envDefault:"localhost"`

	// RefreshSecretGenerated is set when Load filled in an ephemeral development secret.
	RefreshSecretGenerated bool
}

// Load reads configuration from the environment, honoring a local .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Auth.RefreshSecret == "" && !cfg.App.IsProduction() {
		secret, err := randomSecret(32)
		if err != nil {
			return nil, fmt.Errorf("generate refresh secret: %w", err)
		}
		cfg.Auth.RefreshSecret = secret
		cfg.Auth.RefreshSecretGenerated = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return errors.New("AUTH_ACCESS_TOKEN_TTL must be shorter than AUTH_REFRESH_TOKEN_TTL")
	}
	if c.Auth.JWKSFetchTimeout <= 0 {
		return errors.New("AUTH_JWKS_FETCH_TIMEOUT must be positive")
	}
	if c.Auth.RefreshSecret == "" {
		return errors.New("AUTH_REFRESH_TOKEN_SECRET is required")
	}
	if c.App.IsProduction() {
		if len(c.Auth.RefreshSecret) < 32 {
			return errors.New("AUTH_REFRESH_TOKEN_SECRET must be at least 32 bytes in production")
		}
		if c.Auth.PrivateKeyPath == "" && c.Auth.PrivateKeyPEM == "" {
			return errors.New("AUTH_PRIVATE_KEY_PATH or AUTH_PRIVATE_KEY is required in production")
		}
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production hardening.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
