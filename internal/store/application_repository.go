/**
 * @description
 * This file implements the data access layer for loan applications. All
 * status transitions go through a single conditional UPDATE guarded by the
 * set of allowed prior states, so two racing transitions cannot both win.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: The PostgreSQL driver.
 * - The service's internal domain package for the Application model.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loanapp/loan-service/internal/domain"
)

const applicationColumns = `
	id, requested_loan_amount, number_of_installments, installment_amount,
	applicant_occupation, applicant_income, loan_purpose, status,
	status_message, rejected_reason, requested_by, evaluated_by,
	created_at, updated_at
`

// PostgresApplicationRepository is the PostgreSQL implementation of the
// ApplicationRepository.
type PostgresApplicationRepository struct {
	db *pgxpool.Pool
}

// NewPostgresApplicationRepository creates a new instance of PostgresApplicationRepository.
func NewPostgresApplicationRepository(db *pgxpool.Pool) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

// CreateApplication inserts a new application row and returns its id.
func (r *PostgresApplicationRepository) CreateApplication(ctx context.Context, app *domain.Application) (string, error) {
	query := `
        INSERT INTO applications (
            requested_loan_amount, number_of_installments, installment_amount,
            applicant_occupation, applicant_income, loan_purpose, status, requested_by
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		app.RequestedLoanAmount,
		app.NumberOfInstallments,
		app.InstallmentAmount,
		app.ApplicantOccupation,
		app.ApplicantIncome,
		app.LoanPurpose,
		app.Status,
		app.RequestedBy,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create application: %w", err)
	}
	return app.ID, nil
}

// FindApplicationByID retrieves a single application.
func (r *PostgresApplicationRepository) FindApplicationByID(ctx context.Context, id string) (*domain.Application, error) {
	query := `SELECT` + applicationColumns + `FROM applications WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// FindApplicationsByOwner retrieves every application submitted by a user,
// newest first.
func (r *PostgresApplicationRepository) FindApplicationsByOwner(ctx context.Context, userID string) ([]domain.Application, error) {
	query := `SELECT` + applicationColumns + `
        FROM applications
        WHERE requested_by = $1
        ORDER BY created_at DESC`
	return r.queryMany(ctx, query, userID)
}

// FindFirstByOwnerAndStatus returns the newest application the user holds in
// any of the given statuses, or nil when there is none.
func (r *PostgresApplicationRepository) FindFirstByOwnerAndStatus(ctx context.Context, userID string, statuses ...domain.ApplicationStatus) (*domain.Application, error) {
	query := `SELECT` + applicationColumns + `
        FROM applications
        WHERE requested_by = $1 AND status = ANY($2)
        ORDER BY created_at DESC
        LIMIT 1`
	app, err := r.queryOne(ctx, query, userID, statusStrings(statuses))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return app, err
}

// ListApplications returns one page of all applications, newest first.
func (r *PostgresApplicationRepository) ListApplications(ctx context.Context, page, count int) ([]domain.Application, error) {
	if count <= 0 {
		count = 10
	}
	if page < 0 {
		page = 0
	}
	query := `SELECT` + applicationColumns + `
        FROM applications
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	return r.queryMany(ctx, query, count, page*count)
}

// CountApplications returns the total number of applications.
func (r *PostgresApplicationRepository) CountApplications(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM applications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

// UpdateApplicationStatus applies a guarded status transition and returns
// the updated row. It returns domain.ErrNotFound when the application does
// not exist or is not in one of the allowed prior states; the two cases are
// indistinguishable on purpose.
//
// rejected_reason and evaluated_by are only overwritten when the change
// provides them; in particular a later transition away from rejected keeps
// the last known rejection reason.
func (r *PostgresApplicationRepository) UpdateApplicationStatus(ctx context.Context, id string, change StatusChange) (*domain.Application, error) {
	query := `
        UPDATE applications
        SET status = $2,
            status_message = COALESCE($3, status_message),
            rejected_reason = COALESCE($4, rejected_reason),
            evaluated_by = COALESCE($5, evaluated_by),
            updated_at = NOW()
        WHERE id = $1 AND status = ANY($6)
        RETURNING` + applicationColumns

	return r.queryOne(ctx, query,
		id,
		change.To,
		change.StatusMessage,
		change.RejectedReason,
		change.EvaluatedBy,
		statusStrings(change.From),
	)
}

// UpdateApplicationFields overwrites the applicant-editable fields. The
// caller has already re-validated the loan-term invariant.
func (r *PostgresApplicationRepository) UpdateApplicationFields(ctx context.Context, id string, terms domain.LoanTerms) error {
	query := `
        UPDATE applications
        SET requested_loan_amount = $2,
            number_of_installments = $3,
            installment_amount = $4,
            applicant_occupation = $5,
            applicant_income = $6,
            loan_purpose = $7,
            updated_at = NOW()
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query,
		id,
		terms.RequestedLoanAmount,
		terms.NumberOfInstallments,
		terms.InstallmentAmount,
		terms.ApplicantOccupation,
		terms.ApplicantIncome,
		terms.LoanPurpose,
	)
	if err != nil {
		return fmt.Errorf("failed to update application fields: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReconcileIncompleteApplications moves every incomplete application owned
// by the user to pending in one atomic multi-row update, so a crash cannot
// leave the batch half applied.
func (r *PostgresApplicationRepository) ReconcileIncompleteApplications(ctx context.Context, userID string) (int64, error) {
	query := `
        UPDATE applications
        SET status = $2, updated_at = NOW()
        WHERE requested_by = $1 AND status = $3
    `
	result, err := r.db.Exec(ctx, query, userID, domain.StatusPending, domain.StatusIncomplete)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile applications: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresApplicationRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*domain.Application, error) {
	var app domain.Application
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&app.ID,
		&app.RequestedLoanAmount,
		&app.NumberOfInstallments,
		&app.InstallmentAmount,
		&app.ApplicantOccupation,
		&app.ApplicantIncome,
		&app.LoanPurpose,
		&app.Status,
		&app.StatusMessage,
		&app.RejectedReason,
		&app.RequestedBy,
		&app.EvaluatedBy,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query application: %w", err)
	}
	return &app, nil
}

func (r *PostgresApplicationRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]domain.Application, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	applications := []domain.Application{}
	for rows.Next() {
		var app domain.Application
		err := rows.Scan(
			&app.ID,
			&app.RequestedLoanAmount,
			&app.NumberOfInstallments,
			&app.InstallmentAmount,
			&app.ApplicantOccupation,
			&app.ApplicantIncome,
			&app.LoanPurpose,
			&app.Status,
			&app.StatusMessage,
			&app.RejectedReason,
			&app.RequestedBy,
			&app.EvaluatedBy,
			&app.CreatedAt,
			&app.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		applications = append(applications, app)
	}
	return applications, rows.Err()
}

func statusStrings(statuses []domain.ApplicationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
