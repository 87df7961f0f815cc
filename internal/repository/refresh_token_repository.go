package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// RefreshTokenRepository persists one row per issued refresh token. Rows are independent,
// so concurrent sessions for the same user never conflict.
type RefreshTokenRepository interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error)
	FindByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.RefreshToken, error)
	DeleteByID(ctx context.Context, id string) error
	Consume(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type refreshTokenRepository struct {
	db  DBTX
	now func() time.Time
}

// NewRefreshTokenRepository returns a Postgres-backed implementation.
func NewRefreshTokenRepository(db DBTX) RefreshTokenRepository {
	return &refreshTokenRepository{db: db, now: time.Now}
}

// Create inserts a record expiring exactly ttl after its creation time.
func (r *refreshTokenRepository) Create(ctx context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error) {
	const query = `
        INSERT INTO refresh_tokens (id, user_id, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)`

	now := r.now().UTC()
	record := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.db.Exec(ctx, query, record.ID, record.UserID, record.ExpiresAt, record.CreatedAt); err != nil {
		return nil, apperrors.NewPersistence(fmt.Errorf("insert refresh token: %w", err))
	}
	return record, nil
}

// FindByID returns ErrNotFound for unknown or malformed ids.
func (r *refreshTokenRepository) FindByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	const query = `
        SELECT id, user_id, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE id=$1`

	var record domain.RefreshToken
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.UserID,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperrors.NewPersistence(fmt.Errorf("select refresh token: %w", err))
	}
	return &record, nil
}

func (r *refreshTokenRepository) FindByUserID(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	const query = `
        SELECT id, user_id, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE user_id=$1
        ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewPersistence(fmt.Errorf("list refresh tokens: %w", err))
	}
	defer rows.Close()

	var records []domain.RefreshToken
	for rows.Next() {
		var record domain.RefreshToken
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ExpiresAt,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewPersistence(fmt.Errorf("scan refresh token: %w", err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistence(fmt.Errorf("list refresh tokens: %w", err))
	}
	return records, nil
}

// DeleteByID is idempotent: deleting a missing record succeeds.
func (r *refreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	const query = `DELETE FROM refresh_tokens WHERE id=$1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return apperrors.NewPersistence(fmt.Errorf("delete refresh token: %w", err))
	}
	return nil
}

// Consume deletes a live record and reports whether this call removed it. Of several
// concurrent callers presenting the same id, exactly one observes true.
func (r *refreshTokenRepository) Consume(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	const query = `DELETE FROM refresh_tokens WHERE id=$1 AND expires_at > $2`
	cmd, err := r.db.Exec(ctx, query, id, r.now().UTC())
	if err != nil {
		return false, apperrors.NewPersistence(fmt.Errorf("consume refresh token: %w", err))
	}
	return cmd.RowsAffected() == 1, nil
}

// DeleteExpired removes records past their expiry and returns how many were dropped.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
	cmd, err := r.db.Exec(ctx, query, r.now().UTC())
	if err != nil {
		return 0, apperrors.NewPersistence(fmt.Errorf("delete expired refresh tokens: %w", err))
	}
	return cmd.RowsAffected(), nil
}
