package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// IssueRecorder observes issued tokens.
type IssueRecorder interface {
	RecordTokenIssued(kind string)
}

// TokenService pairs the stateless TokenIssuer with the refresh token store.
type TokenService struct {
	issuer   *auth.TokenIssuer
	store    repository.RefreshTokenRepository
	recorder IssueRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewTokenService builds the service. recorder may be nil.
func NewTokenService(issuer *auth.TokenIssuer, store repository.RefreshTokenRepository, recorder IssueRecorder, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{issuer: issuer, store: store, recorder: recorder, logger: logger, now: time.Now}
}

// GenerateAccessToken signs a short-lived access token for identity.
func (s *TokenService) GenerateAccessToken(identity domain.Identity) (string, time.Time, error) {
	token, exp, err := s.issuer.GenerateAccessToken(domain.TokenClaims{Subject: identity.ID, Role: identity.Role})
	if err != nil {
		return "", time.Time{}, err
	}
	s.record("access")
	return token, exp, nil
}

// PersistRefreshToken stores a new refresh record for identity.
func (s *TokenService) PersistRefreshToken(ctx context.Context, identity domain.Identity) (*domain.RefreshToken, error) {
	return s.store.Create(ctx, identity.ID, s.issuer.RefreshTTL())
}

// GenerateRefreshToken signs a refresh token anchored to an already persisted record.
func (s *TokenService) GenerateRefreshToken(identity domain.Identity, record *domain.RefreshToken) (string, time.Time, error) {
	token, exp, err := s.issuer.GenerateRefreshToken(domain.TokenClaims{
		Subject: identity.ID,
		Role:    identity.Role,
		TokenID: record.ID,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	s.record("refresh")
	return token, exp, nil
}

// IssuePair runs access → persist → mint. On any failure no token is returned and a
// record persisted along the way is removed again.
func (s *TokenService) IssuePair(ctx context.Context, identity domain.Identity) (*domain.TokenPair, *domain.RefreshToken, error) {
	access, accessExp, err := s.GenerateAccessToken(identity)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.PersistRefreshToken(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	refresh, refreshExp, err := s.GenerateRefreshToken(identity, record)
	if err != nil {
		if delErr := s.store.DeleteByID(context.WithoutCancel(ctx), record.ID); delErr != nil {
			s.logger.Warn("failed to remove orphaned refresh record", zap.String("refresh_token_id", record.ID), zap.Error(delErr))
		}
		return nil, nil, err
	}

	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, record, nil
}

// ResolveRefreshRecord loads the live record a verified refresh token points at.
// Revoked, expired or foreign records are reported as an invalid token.
func (s *TokenService) ResolveRefreshRecord(ctx context.Context, claims *domain.TokenClaims) (*domain.RefreshToken, error) {
	record, err := s.store.FindByID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidToken(fmt.Errorf("refresh record %s revoked", claims.TokenID))
		}
		return nil, err
	}
	if record.UserID != claims.Subject {
		return nil, apperrors.NewInvalidToken(errors.New("refresh record subject mismatch"))
	}
	if record.Expired(s.now()) {
		return nil, apperrors.NewInvalidToken(errors.New("refresh record expired"))
	}
	return record, nil
}

// Consume revokes the record for rotation. Losing a race against another rotation of the
// same token is reported as an invalid token.
func (s *TokenService) Consume(ctx context.Context, recordID string) error {
	ok, err := s.store.Consume(ctx, recordID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidToken(fmt.Errorf("refresh record %s already used", recordID))
	}
	return nil
}

// Revoke deletes a refresh record. Revoking twice is not an error.
func (s *TokenService) Revoke(ctx context.Context, recordID string) error {
	return s.store.DeleteByID(ctx, recordID)
}

// Sessions lists the refresh records of a user, newest first.
func (s *TokenService) Sessions(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	return s.store.FindByUserID(ctx, userID)
}

func (s *TokenService) record(kind string) {
	if s.recorder != nil {
		s.recorder.RecordTokenIssued(kind)
	}
}
