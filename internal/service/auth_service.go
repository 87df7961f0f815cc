package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

const minPasswordLength = 8

// PasswordHasher is the external hashing primitive.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) (bool, error)
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is the outcome of a successful register, login or refresh.
type AuthResult struct {
	User   *domain.User
	Tokens *domain.TokenPair
}

// AuthService coordinates registration, login and refresh-token rotation.
type AuthService struct {
	users      repository.UserRepository
	hasher     PasswordHasher
	tokens     *TokenService
	verifier   *auth.TokenVerifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Users      repository.UserRepository
	Hasher     PasswordHasher
	Tokens     *TokenService
	Verifier   *auth.TokenVerifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.Users,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		verifier:   deps.Verifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a customer account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	s.logger.Debug("new request to register a user",
		zap.String("first_name", in.FirstName),
		zap.String("last_name", in.LastName),
		zap.String("email", in.Email))

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, emailTaken()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Another request may have claimed the email between the lookup and the insert.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, err
	}
	s.logger.Info("user has been registered", zap.String("user_id", user.ID))

	pair, record, err := s.tokens.IssuePair(ctx, user.Identity())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.Identity(), events.SessionPayload{RefreshTokenID: record.ID})
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Login verifies credentials and issues a new token pair. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	if err := validateLogin(in); err != nil {
		return nil, err
	}

	s.logger.Debug("new request to login a user", zap.String("email", in.Email))

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, err
	}

	match, err := s.hasher.Compare(in.Password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("compare password: %w", err))
	}
	if !match {
		return nil, apperrors.NewInvalidCredentials()
	}

	pair, record, err := s.tokens.IssuePair(ctx, user.Identity())
	if err != nil {
		return nil, err
	}
	s.logger.Info("user has been logged in", zap.String("user_id", user.ID))

	s.publish(ctx, events.EventUserLoggedIn, user.Identity(), events.SessionPayload{RefreshTokenID: record.ID})
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token: its record is deleted and a fresh pair is issued.
// The role is re-read from the directory so role changes take effect on rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperrors.NewMissingToken()
	}
	claims, err := s.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	record, err := s.tokens.ResolveRefreshRecord(ctx, claims)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidToken(errors.New("refresh token subject no longer exists"))
		}
		return nil, err
	}

	if err := s.tokens.Consume(ctx, record.ID); err != nil {
		return nil, err
	}

	pair, next, err := s.tokens.IssuePair(ctx, user.Identity())
	if err != nil {
		return nil, err
	}
	s.logger.Info("refresh token rotated", zap.String("user_id", user.ID))

	s.publish(ctx, events.EventRefreshRotated, user.Identity(), events.SessionPayload{
		RefreshTokenID:         next.ID,
		PreviousRefreshTokenID: record.ID,
	})
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout revokes the session behind refreshToken. The caller must own the session.
func (s *AuthService) Logout(ctx context.Context, caller *domain.TokenClaims, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.NewMissingToken()
	}
	claims, err := s.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	if caller != nil && caller.Subject != claims.Subject {
		return apperrors.NewForbidden("refresh token belongs to another user")
	}
	if err := s.tokens.Revoke(ctx, claims.TokenID); err != nil {
		return err
	}
	s.logger.Info("user has been logged out", zap.String("user_id", claims.Subject))

	s.publish(ctx, events.EventUserLoggedOut, domain.Identity{ID: claims.Subject, Role: claims.Role},
		events.SessionPayload{RefreshTokenID: claims.TokenID})
	return nil
}

// Self returns the user behind verified claims.
func (s *AuthService) Self(ctx context.Context, claims *domain.TokenClaims) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidToken(errors.New("token subject no longer exists"))
		}
		return nil, err
	}
	return user, nil
}

// Sessions lists the live refresh records of the caller, newest first.
func (s *AuthService) Sessions(ctx context.Context, claims *domain.TokenClaims) ([]domain.RefreshToken, error) {
	records, err := s.tokens.Sessions(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := records[:0]
	for _, record := range records {
		if !record.Expired(now) {
			live = append(live, record)
		}
	}
	return live, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, identity domain.Identity, payload events.SessionPayload) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    identity.ID,
		Role:      identity.Role,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func emailTaken() error {
	return apperrors.NewConflict("email is already registered", nil)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegister(in RegisterInput) error {
	details := map[string]any{}
	if in.FirstName == "" {
		details["firstName"] = "first name is required"
	}
	if in.LastName == "" {
		details["lastName"] = "last name is required"
	}
	addEmailIssue(details, in.Email)
	if in.Password == "" {
		details["password"] = "password is required"
	} else if len(in.Password) < minPasswordLength {
		details["password"] = fmt.Sprintf("password length should be at least %d chars", minPasswordLength)
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration payload", details)
	}
	return nil
}

func validateLogin(in LoginInput) error {
	details := map[string]any{}
	addEmailIssue(details, in.Email)
	if in.Password == "" {
		details["password"] = "password is required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid login payload", details)
	}
	return nil
}

func addEmailIssue(details map[string]any, email string) {
	if email == "" {
		details["email"] = "email is required"
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		details["email"] = "email must be a valid address"
	}
}
