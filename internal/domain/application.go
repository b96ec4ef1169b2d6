package domain

import (
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of a loan application. Values are
// stored as-is in the database and returned to clients.
type ApplicationStatus string

const (
	StatusIncomplete       ApplicationStatus = "incomplete"
	StatusPending          ApplicationStatus = "pending"
	StatusApproved         ApplicationStatus = "approved"
	StatusRejected         ApplicationStatus = "rejected"
	StatusCancelled        ApplicationStatus = "cancelled"
	StatusMoreInfoRequired ApplicationStatus = "more_info_required"
)

// NonTerminalStatuses are the states an application can still move out of
// through the normal review flow.
var NonTerminalStatuses = []ApplicationStatus{
	StatusIncomplete,
	StatusPending,
	StatusMoreInfoRequired,
}

// AllStatuses is used where an admin action is allowed regardless of the
// current state.
var AllStatuses = []ApplicationStatus{
	StatusIncomplete,
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
	StatusMoreInfoRequired,
}

// Application is the central entity: one row per submission event. Status
// changes mutate the row in place; there is no history table.
type Application struct {
	ID                   string            `json:"id"`
	RequestedLoanAmount  float64           `json:"requestedLoanAmount"`
	NumberOfInstallments int               `json:"numberOfInstallments"`
	InstallmentAmount    float64           `json:"installmentAmount"`
	ApplicantOccupation  string            `json:"applicantOccupation"`
	ApplicantIncome      float64           `json:"applicantIncome"`
	LoanPurpose          string            `json:"loanPurpose"`
	Status               ApplicationStatus `json:"status"`
	StatusMessage        *string           `json:"statusMessage,omitempty"`
	RejectedReason       *string           `json:"rejectedReason,omitempty"`
	RequestedBy          string            `json:"requestedBy"`
	EvaluatedBy          *string           `json:"evaluatedBy,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// LoanTerms are the applicant-editable fields of an application.
type LoanTerms struct {
	RequestedLoanAmount  float64 `json:"requestedLoanAmount"`
	NumberOfInstallments int     `json:"numberOfInstallments"`
	InstallmentAmount    float64 `json:"installmentAmount"`
	ApplicantOccupation  string  `json:"applicantOccupation"`
	ApplicantIncome      float64 `json:"applicantIncome"`
	LoanPurpose          string  `json:"loanPurpose"`
}

// Validate checks the cross-field invariant that schema validation cannot
// express: the installment plan must cover the requested amount. It runs at
// create and at field-patch time.
func (t LoanTerms) Validate() error {
	if t.RequestedLoanAmount <= 0 {
		return fmt.Errorf("%w: requestedLoanAmount must be positive", ErrValidation)
	}
	if t.NumberOfInstallments < 2 {
		return fmt.Errorf("%w: numberOfInstallments must be at least 2", ErrValidation)
	}
	if t.InstallmentAmount <= 0 {
		return fmt.Errorf("%w: installmentAmount must be positive", ErrValidation)
	}
	if t.InstallmentAmount*float64(t.NumberOfInstallments) < t.RequestedLoanAmount {
		return fmt.Errorf("%w: installment plan does not cover the requested loan amount", ErrValidation)
	}
	if t.ApplicantIncome < 0 {
		return fmt.Errorf("%w: applicantIncome cannot be negative", ErrValidation)
	}
	if t.ApplicantOccupation == "" {
		return fmt.Errorf("%w: applicantOccupation is required", ErrValidation)
	}
	if t.LoanPurpose == "" {
		return fmt.Errorf("%w: loanPurpose is required", ErrValidation)
	}
	return nil
}

// AdminAction is a status-patch action requested through the admin API.
type AdminAction string

const (
	ActionApprove          AdminAction = "approve"
	ActionReject           AdminAction = "reject"
	ActionMoreInfoRequired AdminAction = "more_info_required"
	ActionIncomplete       AdminAction = "incomplete"
	ActionCancel           AdminAction = "cancel"
)

// ParseAdminAction maps a raw action string to an AdminAction. Unknown
// actions are a caller error, not a server one.
func ParseAdminAction(raw string) (AdminAction, error) {
	switch AdminAction(raw) {
	case ActionApprove, ActionReject, ActionMoreInfoRequired, ActionIncomplete, ActionCancel:
		return AdminAction(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrValidation, raw)
	}
}

// TargetStatus is the state the action moves an application into.
func (a AdminAction) TargetStatus() ApplicationStatus {
	switch a {
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	case ActionMoreInfoRequired:
		return StatusMoreInfoRequired
	case ActionIncomplete:
		return StatusIncomplete
	case ActionCancel:
		return StatusCancelled
	default:
		return ""
	}
}

// AllowedFrom lists the states the action may be applied to. The store uses
// this as the guard of a conditional update, so a concurrent transition
// cannot be overwritten by a stale one.
func (a AdminAction) AllowedFrom() []ApplicationStatus {
	switch a {
	case ActionApprove:
		return []ApplicationStatus{StatusPending, StatusIncomplete, StatusMoreInfoRequired}
	case ActionReject:
		return NonTerminalStatuses
	default:
		return AllStatuses
	}
}

// Evaluates reports whether the action records the acting admin as the
// application's evaluator. Only explicit review decisions do.
func (a AdminAction) Evaluates() bool {
	return a == ActionApprove || a == ActionReject
}
