/**
 * @description
 * This file contains the core business logic of the intake backend: the
 * loan-application lifecycle. It orchestrates the status machine, the
 * access policy and the repositories to implement the applicant and admin
 * use-cases.
 *
 * @notes
 * - This service layer keeps the API handlers (controllers) thin and focused
 *   on HTTP concerns, while the business logic remains independent.
 * - Denials of object-scoped operations (view, cancel, patch) surface as
 *   domain.ErrNotFound so a response never confirms that another user's
 *   application exists.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/internal/store"
)

// Submit response messages. The frontend matches on these strings.
const (
	msgApplicationReceived = "Application received."
	msgExistingIncomplete  = "Existing incomplete application"
)

// ApplicationService provides the loan-application use-cases.
type ApplicationService struct {
	applications store.ApplicationRepository
	users        store.UserRepository
	logger       *slog.Logger

	// allowMultiple permits a user to hold more than one non-terminal
	// application at once (deployment toggle).
	allowMultiple bool
}

// NewApplicationService creates a new instance of ApplicationService.
func NewApplicationService(applications store.ApplicationRepository, users store.UserRepository, allowMultiple bool, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{
		applications:  applications,
		users:         users,
		allowMultiple: allowMultiple,
		logger:        logger,
	}
}

// SubmitResult is returned by Submit for both the created and the
// reused-existing outcome.
type SubmitResult struct {
	ID       string                   `json:"id"`
	Status   domain.ApplicationStatus `json:"status"`
	Message  string                   `json:"msg"`
	Existing bool                     `json:"-"`
}

// Submit files a new loan application for the applicant.
//
// With multi-application mode off:
//   - a pending application blocks the submission outright;
//   - an incomplete application belonging to a bank-linked user blocks it
//     too (reconciliation is about to move it to pending);
//   - an incomplete application without bank linkage is returned as-is so
//     the client can resume the linking flow instead of duplicating.
//
// A brand-new application starts incomplete, or pending when the user
// already linked their bank data at submission time.
func (s *ApplicationService) Submit(ctx context.Context, applicantID string, terms domain.LoanTerms) (*SubmitResult, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	if !s.allowMultiple {
		pending, err := s.applications.FindFirstByOwnerAndStatus(ctx, applicantID, domain.StatusPending)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			return nil, domain.ErrDuplicatePending
		}

		incomplete, err := s.applications.FindFirstByOwnerAndStatus(ctx, applicantID, domain.StatusIncomplete)
		if err != nil {
			return nil, err
		}
		if incomplete != nil {
			if user.BankLinked() {
				// Effectively under review already; reconciliation will
				// flip it to pending.
				return nil, domain.ErrDuplicatePending
			}
			return &SubmitResult{
				ID:       incomplete.ID,
				Status:   incomplete.Status,
				Message:  msgExistingIncomplete,
				Existing: true,
			}, nil
		}
	}

	status := domain.StatusIncomplete
	if user.BankLinked() {
		status = domain.StatusPending
	}

	app := &domain.Application{
		RequestedLoanAmount:  terms.RequestedLoanAmount,
		NumberOfInstallments: terms.NumberOfInstallments,
		InstallmentAmount:    terms.InstallmentAmount,
		ApplicantOccupation:  terms.ApplicantOccupation,
		ApplicantIncome:      terms.ApplicantIncome,
		LoanPurpose:          terms.LoanPurpose,
		Status:               status,
		RequestedBy:          applicantID,
	}

	id, err := s.applications.CreateApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	s.logger.Info("application submitted", "id", id, "applicant", applicantID, "status", status)

	return &SubmitResult{ID: id, Status: status, Message: msgApplicationReceived}, nil
}

// ApplicationSummary is the caller-safe projection used when listing a
// user's own applications. It deliberately omits the evaluator identity and
// any linked financial payload.
type ApplicationSummary struct {
	ID                   string                   `json:"id"`
	RequestedLoanAmount  float64                  `json:"requestedLoanAmount"`
	NumberOfInstallments int                      `json:"numberOfInstallments"`
	InstallmentAmount    float64                  `json:"installmentAmount"`
	ApplicantOccupation  string                   `json:"applicantOccupation"`
	ApplicantIncome      float64                  `json:"applicantIncome"`
	LoanPurpose          string                   `json:"loanPurpose"`
	Status               domain.ApplicationStatus `json:"status"`
}

// ListMine returns every application the applicant submitted.
func (s *ApplicationService) ListMine(ctx context.Context, applicantID string) ([]ApplicationSummary, error) {
	apps, err := s.applications.FindApplicationsByOwner(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ApplicationSummary, 0, len(apps))
	for _, a := range apps {
		summaries = append(summaries, summarize(&a))
	}
	return summaries, nil
}

// ApplicationView is the single-application projection. RejectedReason is
// populated only while the application is actually rejected, even though
// the stored value may outlive later transitions.
type ApplicationView struct {
	ApplicationSummary
	StatusMessage  *string   `json:"statusMessage,omitempty"`
	RejectedReason *string   `json:"rejectedReason,omitempty"`
	RequestedAt    time.Time `json:"requestedAt"`
}

// ViewByID returns one application, subject to the access policy.
func (s *ApplicationService) ViewByID(ctx context.Context, actor domain.Actor, id string) (*ApplicationView, error) {
	app, err := s.applications.FindApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanAccess(actor, app, domain.OpView) {
		return nil, domain.ErrNotFound
	}

	view := &ApplicationView{
		ApplicationSummary: summarize(app),
		StatusMessage:      app.StatusMessage,
		RequestedAt:        app.CreatedAt,
	}
	if app.Status == domain.StatusRejected {
		view.RejectedReason = app.RejectedReason
	}
	return view, nil
}

// Cancel moves a pending application to cancelled. Owners may cancel their
// own applications; admins may cancel anyone's. Anything not pending (or not
// visible to the caller) answers not-found.
func (s *ApplicationService) Cancel(ctx context.Context, actor domain.Actor, id string) error {
	app, err := s.applications.FindApplicationByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanAccess(actor, app, domain.OpCancel) {
		return domain.ErrNotFound
	}

	_, err = s.applications.UpdateApplicationStatus(ctx, id, store.StatusChange{
		From: []domain.ApplicationStatus{domain.StatusPending},
		To:   domain.StatusCancelled,
	})
	if err != nil {
		return err
	}
	s.logger.Info("application cancelled", "id", id, "actor", actor.ID)
	return nil
}

// PatchFields overwrites the applicant-editable fields after re-validating
// the loan-term invariant. Status is untouched.
func (s *ApplicationService) PatchFields(ctx context.Context, actor domain.Actor, id string, terms domain.LoanTerms) error {
	if err := terms.Validate(); err != nil {
		return err
	}

	app, err := s.applications.FindApplicationByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanAccess(actor, app, domain.OpPatch) {
		return domain.ErrNotFound
	}

	return s.applications.UpdateApplicationFields(ctx, id, terms)
}

// AdminList returns one page of all applications.
func (s *ApplicationService) AdminList(ctx context.Context, page, count int) ([]domain.Application, error) {
	return s.applications.ListApplications(ctx, page, count)
}

// AdminCount returns the total number of applications.
func (s *ApplicationService) AdminCount(ctx context.Context) (int, error) {
	return s.applications.CountApplications(ctx)
}

// AdminApprove approves an application under review and records the
// evaluating admin.
func (s *ApplicationService) AdminApprove(ctx context.Context, adminID, id string) (*domain.Application, error) {
	return s.adminTransition(ctx, adminID, id, domain.ActionApprove, "")
}

// AdminReject rejects an application with a reason and records the
// evaluating admin. The reason is mandatory.
func (s *ApplicationService) AdminReject(ctx context.Context, adminID, id, reason string) (*domain.Application, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	return s.adminTransition(ctx, adminID, id, domain.ActionReject, reason)
}

// AdminPatchStatus applies an arbitrary admin status action. message feeds
// rejectedReason for reject and statusMessage for the informational
// transitions.
func (s *ApplicationService) AdminPatchStatus(ctx context.Context, adminID, id, rawAction, message string) (*domain.Application, error) {
	action, err := domain.ParseAdminAction(rawAction)
	if err != nil {
		return nil, err
	}
	if action == domain.ActionReject && message == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	return s.adminTransition(ctx, adminID, id, action, message)
}

func (s *ApplicationService) adminTransition(ctx context.Context, adminID, id string, action domain.AdminAction, message string) (*domain.Application, error) {
	change := store.StatusChange{
		From: action.AllowedFrom(),
		To:   action.TargetStatus(),
	}
	if action.Evaluates() {
		change.EvaluatedBy = &adminID
	}
	switch action {
	case domain.ActionReject:
		change.RejectedReason = &message
	case domain.ActionMoreInfoRequired, domain.ActionIncomplete:
		if message != "" {
			change.StatusMessage = &message
		}
	}

	app, err := s.applications.UpdateApplicationStatus(ctx, id, change)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("admin transition %s failed: %w", action, err)
	}
	s.logger.Info("application status changed", "id", id, "action", action, "admin", adminID)
	return app, nil
}

// PaymentSize quotes installment payments for a requested loan amount.
// Degenerate amounts are a caller error here, unlike the calculator's own
// empty-map convention, because the HTTP surface promises a 400.
func (s *ApplicationService) PaymentSize(requestedLoanAmount float64) (map[int]float64, error) {
	if math.IsNaN(requestedLoanAmount) || math.IsInf(requestedLoanAmount, 0) || requestedLoanAmount <= 0 {
		return nil, fmt.Errorf("%w: requestedLoanAmount must be a positive number", domain.ErrValidation)
	}
	return domain.InstallmentSchedule(requestedLoanAmount), nil
}

func summarize(a *domain.Application) ApplicationSummary {
	return ApplicationSummary{
		ID:                   a.ID,
		RequestedLoanAmount:  a.RequestedLoanAmount,
		NumberOfInstallments: a.NumberOfInstallments,
		InstallmentAmount:    a.InstallmentAmount,
		ApplicantOccupation:  a.ApplicantOccupation,
		ApplicantIncome:      a.ApplicantIncome,
		LoanPurpose:          a.LoanPurpose,
		Status:               a.Status,
	}
}
