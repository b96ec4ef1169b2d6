package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loanapp/loan-service/internal/domain"
)

// ErrVerificationExists is returned when an insert loses a race against a
// concurrent request for the same address and hits the unique email index.
var ErrVerificationExists = errors.New("verification already exists for email")

// PostgresVerificationRepository stores e-mail verification codes, one row
// per address.
type PostgresVerificationRepository struct {
	db *pgxpool.Pool
}

// NewPostgresVerificationRepository creates a new instance of PostgresVerificationRepository.
func NewPostgresVerificationRepository(db *pgxpool.Pool) *PostgresVerificationRepository {
	return &PostgresVerificationRepository{db: db}
}

// FindVerificationByEmail returns the verification row for an address, or
// nil when the address was never asked to verify.
func (r *PostgresVerificationRepository) FindVerificationByEmail(ctx context.Context, email string) (*domain.EmailVerification, error) {
	query := `
        SELECT id, email, code, verified, created_at, expires_at
        FROM email_verifications
        WHERE email = $1
    `
	var v domain.EmailVerification
	err := r.db.QueryRow(ctx, query, email).Scan(&v.ID, &v.Email, &v.Code, &v.Verified, &v.CreatedAt, &v.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query email verification: %w", err)
	}
	return &v, nil
}

// CreateVerification inserts a fresh verification entry for an address.
func (r *PostgresVerificationRepository) CreateVerification(ctx context.Context, email, code string, expires time.Time) (*domain.EmailVerification, error) {
	query := `
        INSERT INTO email_verifications (email, code, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	v := &domain.EmailVerification{Email: email, Code: code, ExpiresAt: &expires}
	if err := r.db.QueryRow(ctx, query, email, code, expires).Scan(&v.ID, &v.CreatedAt); err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrVerificationExists
		}
		return nil, fmt.Errorf("failed to create email verification: %w", err)
	}
	return v, nil
}

// RefreshVerification replaces an expired code with a new one and restarts
// the expiry window.
func (r *PostgresVerificationRepository) RefreshVerification(ctx context.Context, id, code string, expires time.Time) error {
	_, err := r.db.Exec(ctx, `
        UPDATE email_verifications
        SET code = $2, created_at = NOW(), expires_at = $3
        WHERE id = $1
    `, id, code, expires)
	return err
}

// ClaimVerificationCode marks the address verified when the code matches an
// unexpired row. The code is cleared on success so it cannot be replayed.
func (r *PostgresVerificationRepository) ClaimVerificationCode(ctx context.Context, email, code string, now time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
        UPDATE email_verifications
        SET verified = TRUE, code = '', expires_at = NULL
        WHERE email = $1 AND code = $2 AND code <> '' AND expires_at > $3
    `, email, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim verification code: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// PurgeExpiredVerifications removes stale unverified rows. Run from the
// cron sweep.
func (r *PostgresVerificationRepository) PurgeExpiredVerifications(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `
        DELETE FROM email_verifications
        WHERE verified = FALSE AND expires_at IS NOT NULL AND expires_at < $1
    `, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired verifications: %w", err)
	}
	return result.RowsAffected(), nil
}
