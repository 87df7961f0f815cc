package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

const refreshSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.IsProduction())
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	signingKey := loadSigningKey(cfg, logger)
	if cfg.Auth.RefreshSecretGenerated {
		logger.Warn("no refresh token secret configured; using an ephemeral secret")
	}
	metrics := observability.NewMetrics()

	issuer := auth.NewTokenIssuer(auth.IssuerConfig{
		Issuer:        cfg.Auth.Issuer,
		SigningKey:    signingKey,
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	verifier := auth.NewTokenVerifier(auth.VerifierConfig{
		Keys:          newKeySource(cfg, signingKey, redis, metrics, logger),
		Issuer:        cfg.Auth.Issuer,
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		Recorder:      metrics,
	})

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	refreshRepo := repository.NewRefreshTokenRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))
	go worker.RunRefreshSweeper(ctx, refreshRepo, refreshSweepInterval, logger.Named("sweeper"))

	tokenService := service.NewTokenService(issuer, refreshRepo, metrics, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		Users:      userRepo,
		Hasher:     auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:     tokenService,
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth: handlers.NewAuthHandler(authService, handlers.CookieConfig{
			Domain: cfg.Auth.CookieDomain,
			Secure: cfg.App.IsProduction(),
		}),
		JWKS:           handlers.NewJWKSHandler(signingKey),
		AuthMiddleware: auth.NewAuthMiddleware(verifier),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// loadSigningKey reads the configured RSA key. Outside production a missing key is replaced
// by an ephemeral one, which invalidates every access token on restart.
func loadSigningKey(cfg *config.Config, logger *zap.Logger) *auth.SigningKey {
	if cfg.Auth.PrivateKeyPath != "" || cfg.Auth.PrivateKeyPEM != "" {
		key, err := auth.LoadSigningKey(cfg.Auth.PrivateKeyPath, cfg.Auth.PrivateKeyPEM, cfg.Auth.KeyID)
		if err != nil {
			logger.Fatal("failed to load signing key", zap.Error(err))
		}
		logger.Info("signing key loaded", zap.String("kid", key.KeyID))
		return key
	}

	key, err := auth.GenerateSigningKey(2048)
	if err != nil {
		logger.Fatal("failed to generate signing key", zap.Error(err))
	}
	logger.Warn("no signing key configured; using an ephemeral key", zap.String("kid", key.KeyID))
	return key
}

func newKeySource(cfg *config.Config, signingKey *auth.SigningKey, redis *persistence.Redis, metrics *observability.Metrics, logger *zap.Logger) auth.KeySource {
	if cfg.Auth.JWKSURL == "" {
		return auth.NewStaticKeySource(signingKey)
	}
	logger.Info("verifying access tokens against remote key set", zap.String("url", cfg.Auth.JWKSURL))
	return auth.NewRemoteKeySource(auth.RemoteKeySourceConfig{
		URL:      cfg.Auth.JWKSURL,
		Timeout:  cfg.Auth.JWKSFetchTimeout,
		Limiter:  redis.Limiter("jwks", cfg.Auth.JWKSFetchesPerMin, time.Minute),
		Recorder: metrics,
		Logger:   logger.Named("jwks"),
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
