package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// RefreshAudience marks refresh tokens so they can never pass as access tokens.
const RefreshAudience = "refresh"

// Claims describes the JWT payload of both token kinds.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssuerConfig configures a TokenIssuer.
type IssuerConfig struct {
	Issuer        string
	SigningKey    *SigningKey
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// TokenIssuer signs access tokens with the RSA key and refresh tokens with the refresh secret.
type TokenIssuer struct {
	issuer        string
	key           *SigningKey
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer builds an issuer. Missing key material surfaces when signing, not here.
func NewTokenIssuer(cfg IssuerConfig) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 365 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenIssuer{
		issuer:        cfg.Issuer,
		key:           cfg.SigningKey,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           cfg.Now,
	}
}

// RefreshTTL returns the lifetime of refresh tokens and their records.
func (ti *TokenIssuer) RefreshTTL() time.Duration {
	return ti.refreshTTL
}

// GenerateAccessToken signs an RS256 access token for claims.Subject and claims.Role.
// Any TokenID on claims is ignored.
func (ti *TokenIssuer) GenerateAccessToken(claims domain.TokenClaims) (string, time.Time, error) {
	if ti.key == nil || ti.key.Private == nil {
		return "", time.Time{}, apperrors.NewSigning(errors.New("no signing key configured"))
	}

	now := ti.now()
	expiresAt := now.Add(ti.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{
		Role: string(claims.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	token.Header["kid"] = ti.key.KeyID

	signed, err := token.SignedString(ti.key.Private)
	if err != nil {
		return "", time.Time{}, apperrors.NewSigning(err)
	}
	return signed, expiresAt, nil
}

// GenerateRefreshToken signs an HS256 refresh token whose jti is the persisted record id.
func (ti *TokenIssuer) GenerateRefreshToken(claims domain.TokenClaims) (string, time.Time, error) {
	if len(ti.refreshSecret) == 0 {
		return "", time.Time{}, apperrors.NewSigning(errors.New("no refresh secret configured"))
	}
	if claims.TokenID == "" {
		return "", time.Time{}, apperrors.NewSigning(errors.New("refresh token requires a record id"))
	}

	now := ti.now()
	expiresAt := now.Add(ti.refreshTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: string(claims.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    ti.issuer,
			Audience:  jwt.ClaimStrings{RefreshAudience},
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(ti.refreshSecret)
	if err != nil {
		return "", time.Time{}, apperrors.NewSigning(err)
	}
	return signed, expiresAt, nil
}
