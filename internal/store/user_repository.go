/**
 * @description
 * This file implements the data access layer for user accounts, including
 * the Plaid credential update that commits together with its outbox events
 * in one transaction.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: Transactions and error inspection.
 * - github.com/jackc/pgx/v5/pgxpool: The PostgreSQL driver.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loanapp/loan-service/internal/domain"
)

// ErrEmailTaken is returned when an insert violates the unique e-mail index.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `
	id, role, first_name, last_name, email, hashed_password, date_of_birth,
	applicant_gender, street_address, unit_number, city, postal_code,
	province, additional_address, plaid_item_id, plaid_access_token,
	recovery_token, created_at, updated_at
`

// PostgresUserRepository is the PostgreSQL implementation of the UserRepository.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new instance of PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser inserts a new user record and returns its id. A duplicate
// e-mail surfaces as ErrEmailTaken so the handler can answer 400 with the
// stable code instead of a bare 500.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	query := `
        INSERT INTO users (
            role, first_name, last_name, email, hashed_password, date_of_birth,
            applicant_gender, street_address, unit_number, city, postal_code,
            province, additional_address
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
	var userID string
	err := r.db.QueryRow(ctx, query,
		user.Role,
		user.FirstName,
		user.LastName,
		user.Email,
		user.HashedPassword,
		user.DateOfBirth,
		user.ApplicantGender,
		user.Address.StreetAddress,
		user.Address.UnitNumber,
		user.Address.City,
		user.Address.PostalCode,
		user.Address.Province,
		user.Address.AdditionalAddress,
	).Scan(&userID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return "", ErrEmailTaken
		}
		log.Printf("Error inserting user into database: %v", err)
		return "", err
	}
	return userID, nil
}

// FindUserByID retrieves a single user by id.
func (r *PostgresUserRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// FindUserByEmail retrieves a single user by e-mail address.
func (r *PostgresUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE email = $1`
	return r.queryOne(ctx, query, email)
}

// FindUserByEmailAndRecoveryToken matches a password-recovery claim against
// the token stored when recovery was requested.
func (r *PostgresUserRepository) FindUserByEmailAndRecoveryToken(ctx context.Context, email, token string) (*domain.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE email = $1 AND recovery_token = $2`
	return r.queryOne(ctx, query, email, token)
}

// UpdateUserProfile overwrites the user-editable profile fields.
func (r *PostgresUserRepository) UpdateUserProfile(ctx context.Context, id string, profile domain.UserProfile) error {
	query := `
        UPDATE users
        SET first_name = $2, last_name = $3, date_of_birth = $4,
            applicant_gender = $5, street_address = $6, unit_number = $7,
            city = $8, postal_code = $9, province = $10,
            additional_address = $11, updated_at = NOW()
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query,
		id,
		profile.FirstName,
		profile.LastName,
		profile.DateOfBirth,
		profile.ApplicantGender,
		profile.Address.StreetAddress,
		profile.Address.UnitNumber,
		profile.Address.City,
		profile.Address.PostalCode,
		profile.Address.Province,
		profile.Address.AdditionalAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetRecoveryToken stores (or clears, when nil) the password-recovery token.
func (r *PostgresUserRepository) SetRecoveryToken(ctx context.Context, id string, token *string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET recovery_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	return err
}

// UpdatePassword replaces the stored password hash and clears any pending
// recovery token in the same statement.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	result, err := r.db.Exec(ctx, `
        UPDATE users
        SET hashed_password = $2, recovery_token = NULL, updated_at = NOW()
        WHERE id = $1
    `, id, hashedPassword)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPlaidCredentialsAndEnqueueEvents stores the exchanged Plaid credentials
// and enqueues the bank-link events in the same transaction, so the welcome
// e-mail and the reconciliation trigger cannot be lost once the credentials
// are committed.
func (r *PostgresUserRepository) SetPlaidCredentialsAndEnqueueEvents(ctx context.Context, id, itemID, accessToken string, events []OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
        UPDATE users
        SET plaid_item_id = $2, plaid_access_token = $3, updated_at = NOW()
        WHERE id = $1
    `, id, itemID, accessToken)
	if err != nil {
		return fmt.Errorf("failed to store plaid credentials: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	for _, event := range events {
		if err := enqueueEventTx(ctx, tx, event); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// FindBankLinkedUserIDsWithIncompleteApplications lists users whose bank
// linkage completed but who still hold incomplete applications. The cron
// sweep uses it as a safety net for missed bank-link events.
func (r *PostgresUserRepository) FindBankLinkedUserIDsWithIncompleteApplications(ctx context.Context) ([]string, error) {
	query := `
        SELECT DISTINCT u.id
        FROM users u
        JOIN applications a ON a.requested_by = u.id
        WHERE a.status = $1
          AND u.plaid_item_id IS NOT NULL AND u.plaid_item_id <> ''
          AND u.plaid_access_token IS NOT NULL AND u.plaid_access_token <> ''
    `
	rows, err := r.db.Query(ctx, query, domain.StatusIncomplete)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale incomplete applications: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresUserRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.HashedPassword,
		&user.DateOfBirth,
		&user.ApplicantGender,
		&user.Address.StreetAddress,
		&user.Address.UnitNumber,
		&user.Address.City,
		&user.Address.PostalCode,
		&user.Address.Province,
		&user.Address.AdditionalAddress,
		&user.PlaidItemID,
		&user.PlaidAccessToken,
		&user.RecoveryToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}
