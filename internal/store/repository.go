/**
 * @description
 * This file defines the interfaces for the data access layer (repositories).
 * Defining interfaces allows for dependency injection and easy mocking in
 * tests, promoting a loosely coupled architecture.
 *
 * @notes
 * - Any component that needs to interact with the database should depend on
 *   these interfaces, not on the concrete PostgreSQL implementations.
 */
package store

import (
	"context"
	"time"

	"github.com/loanapp/loan-service/internal/domain"
)

// StatusChange describes a guarded status transition. From lists the states
// the update may apply to; the repository performs it as a single
// conditional UPDATE so concurrent transitions cannot overwrite each other.
type StatusChange struct {
	From           []domain.ApplicationStatus
	To             domain.ApplicationStatus
	StatusMessage  *string
	RejectedReason *string
	EvaluatedBy    *string
}

// ApplicationRepository defines the contract for application persistence.
type ApplicationRepository interface {
	CreateApplication(ctx context.Context, app *domain.Application) (string, error)
	FindApplicationByID(ctx context.Context, id string) (*domain.Application, error)
	FindApplicationsByOwner(ctx context.Context, userID string) ([]domain.Application, error)
	FindFirstByOwnerAndStatus(ctx context.Context, userID string, statuses ...domain.ApplicationStatus) (*domain.Application, error)
	ListApplications(ctx context.Context, page, count int) ([]domain.Application, error)
	CountApplications(ctx context.Context) (int, error)
	UpdateApplicationStatus(ctx context.Context, id string, change StatusChange) (*domain.Application, error)
	UpdateApplicationFields(ctx context.Context, id string, terms domain.LoanTerms) error
	ReconcileIncompleteApplications(ctx context.Context, userID string) (int64, error)
}

// UserRepository defines the contract for user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (string, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByEmailAndRecoveryToken(ctx context.Context, email, token string) (*domain.User, error)
	UpdateUserProfile(ctx context.Context, id string, profile domain.UserProfile) error
	SetRecoveryToken(ctx context.Context, id string, token *string) error
	UpdatePassword(ctx context.Context, id, hashedPassword string) error
	SetPlaidCredentialsAndEnqueueEvents(ctx context.Context, id, itemID, accessToken string, events []OutboxEvent) error
	FindBankLinkedUserIDsWithIncompleteApplications(ctx context.Context) ([]string, error)
}

// VerificationRepository defines the contract for e-mail verification codes.
type VerificationRepository interface {
	FindVerificationByEmail(ctx context.Context, email string) (*domain.EmailVerification, error)
	CreateVerification(ctx context.Context, email, code string, expires time.Time) (*domain.EmailVerification, error)
	RefreshVerification(ctx context.Context, id, code string, expires time.Time) error
	ClaimVerificationCode(ctx context.Context, email, code string, now time.Time) (bool, error)
	PurgeExpiredVerifications(ctx context.Context, now time.Time) (int64, error)
}

// OutboxEvent is an event payload queued for publication together with the
// state change that produced it.
type OutboxEvent struct {
	Exchange   string
	RoutingKey string
	Payload    interface{}
}

// OutboxMessage is a claimed notification_outbox row ready for dispatch.
type OutboxMessage struct {
	ID         int64
	Exchange   string
	RoutingKey string
	Payload    []byte
	Attempts   int
}

// OutboxRepository defines the contract for the transactional outbox that
// decouples e-mail dispatch from the request that triggered it.
type OutboxRepository interface {
	EnqueueEvent(ctx context.Context, event OutboxEvent) error
	ClaimOutboxMessages(ctx context.Context, limit, staleAfterSeconds int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error
}
