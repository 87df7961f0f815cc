package auth

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// VerificationRecorder observes rejected tokens.
type VerificationRecorder interface {
	RecordTokenRejected(kind string)
}

// VerifierConfig configures a TokenVerifier.
type VerifierConfig struct {
	Keys          KeySource
	Issuer        string
	RefreshSecret []byte
	Recorder      VerificationRecorder
	Now           func() time.Time
}

// TokenVerifier validates access tokens against a KeySource and refresh tokens against
// the refresh secret. Each kind is pinned to exactly one algorithm.
type TokenVerifier struct {
	keys          KeySource
	issuer        string
	refreshSecret []byte
	recorder      VerificationRecorder
	now           func() time.Time
}

// NewTokenVerifier builds a verifier.
func NewTokenVerifier(cfg VerifierConfig) *TokenVerifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenVerifier{
		keys:          cfg.Keys,
		issuer:        cfg.Issuer,
		refreshSecret: cfg.RefreshSecret,
		recorder:      cfg.Recorder,
		now:           cfg.Now,
	}
}

// VerifyAccess checks an RS256 access token. Transient key set failures surface as
// KeyResolutionError; every other failure is an InvalidTokenError.
func (v *TokenVerifier) VerifyAccess(ctx context.Context, tokenStr string) (*domain.TokenClaims, error) {
	parser := jwt.NewParser(v.options(jwt.SigningMethodRS256)...)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.ResolveKey(ctx, kid)
	})
	if err != nil {
		return nil, v.reject("access", err)
	}
	// Refresh tokens are HS256 and already fail the method pin; this keeps the audiences disjoint.
	for _, aud := range claims.Audience {
		if aud == RefreshAudience {
			return nil, v.reject("access", errors.New("refresh audience on access token"))
		}
	}
	return toDomainClaims(&claims), nil
}

// VerifyRefresh checks an HS256 refresh token and requires its record id.
func (v *TokenVerifier) VerifyRefresh(tokenStr string) (*domain.TokenClaims, error) {
	if len(v.refreshSecret) == 0 {
		return nil, v.reject("refresh", errors.New("no refresh secret configured"))
	}
	options := append(v.options(jwt.SigningMethodHS256), jwt.WithAudience(RefreshAudience))
	parser := jwt.NewParser(options...)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return v.refreshSecret, nil
	})
	if err != nil {
		return nil, v.reject("refresh", err)
	}
	if claims.ID == "" {
		return nil, v.reject("refresh", errors.New("missing jti"))
	}
	return toDomainClaims(&claims), nil
}

func (v *TokenVerifier) options(method jwt.SigningMethod) []jwt.ParserOption {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	return options
}

func (v *TokenVerifier) reject(kind string, err error) error {
	if v.recorder != nil {
		v.recorder.RecordTokenRejected(kind)
	}
	if apperrors.HasCode(err, apperrors.CodeKeyResolution) && !errors.Is(err, ErrKeyNotFound) {
		return apperrors.ToDomainError(err)
	}
	return apperrors.NewInvalidToken(err)
}

func toDomainClaims(claims *Claims) *domain.TokenClaims {
	return &domain.TokenClaims{
		Subject: claims.Subject,
		Role:    domain.Role(claims.Role),
		TokenID: claims.ID,
	}
}
