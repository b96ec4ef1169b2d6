package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/internal/store"
)

type fakeApplicationRepo struct {
	apps   map[string]*domain.Application
	nextID int
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: make(map[string]*domain.Application)}
}

func (r *fakeApplicationRepo) CreateApplication(ctx context.Context, app *domain.Application) (string, error) {
	r.nextID++
	id := fmt.Sprintf("app-%d", r.nextID)
	stored := *app
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.apps[id] = &stored
	return id, nil
}

func (r *fakeApplicationRepo) FindApplicationByID(ctx context.Context, id string) (*domain.Application, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *app
	return &copied, nil
}

func (r *fakeApplicationRepo) FindApplicationsByOwner(ctx context.Context, userID string) ([]domain.Application, error) {
	var out []domain.Application
	for _, app := range r.apps {
		if app.RequestedBy == userID {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) FindFirstByOwnerAndStatus(ctx context.Context, userID string, statuses ...domain.ApplicationStatus) (*domain.Application, error) {
	for _, app := range r.apps {
		if app.RequestedBy != userID {
			continue
		}
		for _, status := range statuses {
			if app.Status == status {
				copied := *app
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeApplicationRepo) ListApplications(ctx context.Context, page, count int) ([]domain.Application, error) {
	var out []domain.Application
	for _, app := range r.apps {
		out = append(out, *app)
	}
	return out, nil
}

func (r *fakeApplicationRepo) CountApplications(ctx context.Context) (int, error) {
	return len(r.apps), nil
}

func (r *fakeApplicationRepo) UpdateApplicationStatus(ctx context.Context, id string, change store.StatusChange) (*domain.Application, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	allowed := false
	for _, from := range change.From {
		if app.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domain.ErrNotFound
	}
	app.Status = change.To
	if change.StatusMessage != nil {
		app.StatusMessage = change.StatusMessage
	}
	if change.RejectedReason != nil {
		app.RejectedReason = change.RejectedReason
	}
	if change.EvaluatedBy != nil {
		app.EvaluatedBy = change.EvaluatedBy
	}
	app.UpdatedAt = time.Now()
	copied := *app
	return &copied, nil
}

func (r *fakeApplicationRepo) UpdateApplicationFields(ctx context.Context, id string, terms domain.LoanTerms) error {
	app, ok := r.apps[id]
	if !ok {
		return domain.ErrNotFound
	}
	app.RequestedLoanAmount = terms.RequestedLoanAmount
	app.NumberOfInstallments = terms.NumberOfInstallments
	app.InstallmentAmount = terms.InstallmentAmount
	app.ApplicantOccupation = terms.ApplicantOccupation
	app.ApplicantIncome = terms.ApplicantIncome
	app.LoanPurpose = terms.LoanPurpose
	return nil
}

func (r *fakeApplicationRepo) ReconcileIncompleteApplications(ctx context.Context, userID string) (int64, error) {
	var moved int64
	for _, app := range r.apps {
		if app.RequestedBy == userID && app.Status == domain.StatusIncomplete {
			app.Status = domain.StatusPending
			moved++
		}
	}
	return moved, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) addUser(id string, bankLinked bool) *domain.User {
	user := &domain.User{
		ID:        id,
		Role:      domain.RoleUser,
		FirstName: "Test",
		LastName:  "User",
		Email:     id + "@example.com",
	}
	if bankLinked {
		itemID := "item-" + id
		accessToken := "access-" + id
		user.PlaidItemID = &itemID
		user.PlaidAccessToken = &accessToken
	}
	r.users[id] = user
	return user
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return "", store.ErrEmailTaken
		}
	}
	id := fmt.Sprintf("user-%d", len(r.users)+1)
	stored := *user
	stored.ID = id
	r.users[id] = &stored
	return id, nil
}

func (r *fakeUserRepo) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) FindUserByEmailAndRecoveryToken(ctx context.Context, email, token string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email && user.RecoveryToken != nil && *user.RecoveryToken == token {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) UpdateUserProfile(ctx context.Context, id string, profile domain.UserProfile) error {
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName
	return nil
}

func (r *fakeUserRepo) SetRecoveryToken(ctx context.Context, id string, token *string) error {
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.RecoveryToken = token
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.HashedPassword = hashedPassword
	user.RecoveryToken = nil
	return nil
}

func (r *fakeUserRepo) SetPlaidCredentialsAndEnqueueEvents(ctx context.Context, id, itemID, accessToken string, events []store.OutboxEvent) error {
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.PlaidItemID = &itemID
	user.PlaidAccessToken = &accessToken
	return nil
}

func (r *fakeUserRepo) FindBankLinkedUserIDsWithIncompleteApplications(ctx context.Context) ([]string, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApplicationService(apps *fakeApplicationRepo, users *fakeUserRepo, allowMultiple bool) *ApplicationService {
	return NewApplicationService(apps, users, allowMultiple, testLogger())
}

func TestSubmit_CreatesIncompleteForUnlinkedUser(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	users.addUser("user-1", false)
	service := newTestApplicationService(apps, users, false)

	result, err := service.Submit(context.Background(), "user-1", validTerms())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusIncomplete {
		t.Fatalf("expected incomplete status, got %s", result.Status)
	}
	if result.Message != "Application received." {
		t.Fatalf("unexpected message: %q", result.Message)
	}

	stored := apps.apps[result.ID]
	if stored == nil || stored.RequestedBy != "user-1" {
		t.Fatalf("application not stored for the applicant: %+v", stored)
	}
}

func TestSubmit_CreatesPendingForBankLinkedUser(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	users.addUser("user-1", true)
	service := newTestApplicationService(apps, users, false)

	result, err := service.Submit(context.Background(), "user-1", validTerms())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", result.Status)
	}
}

func TestSubmit_RejectsDuplicatePending(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	users.addUser("user-1", false)
	service := newTestApplicationService(apps, users, false)

	if _, err := service.Submit(context.Background(), "user-1", validTerms()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	for _, app := range apps.apps {
		app.Status = domain.StatusPending
	}

	_, err := service.Submit(context.Background(), "user-1", validTerms())
	if !errors.Is(err, domain.ErrDuplicatePending) {
		t.Fatalf("expected duplicate-pending error, got %v", err)
	}
}

func TestSubmit_ReusesIncompleteForUnlinkedUser(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	users.addUser("user-1", false)
	service := newTestApplicationService(apps, users, false)

	first, err := service.Submit(context.Background(), "user-1", validTerms())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	second, err := service.Submit(context.Background(), "user-1", validTerms())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !second.Existing {
		t.Fatal("expected the existing application to be reused")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing id %s, got %s", first.ID, second.ID)
	}
	if second.Message != "Existing incomplete application" {
		t.Fatalf("unexpected message: %q", second.Message)
	}
	if len(apps.apps) != 1 {
		t.Fatalf("expected a single stored application, got %d", len(apps.apps))
	}
}

func TestSubmit_RejectsIncompleteForBankLinkedUser(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	user := users.addUser("user-1", false)
	service := newTestApplicationService(apps, users, false)

	if _, err := service.Submit(context.Background(), "user-1", validTerms()); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	itemID, accessToken := "item-1", "access-1"
	user.PlaidItemID = &itemID
	user.PlaidAccessToken = &accessToken

	_, err := service.Submit(context.Background(), "user-1", validTerms())
	if !errors.Is(err, domain.ErrDuplicatePending) {
		t.Fatalf("expected duplicate-pending error, got %v", err)
	}
}

func TestSubmit_MultipleApplicationsModeSkipsDuplicateChecks(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	users.addUser("user-1", false)
	service := newTestApplicationService(apps, users, true)

	for i := 0; i < 3; i++ {
		if _, err := service.Submit(context.Background(), "user-1", validTerms()); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if len(apps.apps) != 3 {
		t.Fatalf("expected 3 applications, got %d", len(apps.apps))
	}
}

func TestSubmit_InvalidTerms(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	users.addUser("user-1", false)
	service := newTestApplicationService(apps, users, false)

	terms := validTerms()
	terms.InstallmentAmount = 10 // 12 * 10 < 1000

	_, err := service.Submit(context.Background(), "user-1", terms)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancel_OnlyFromPending(t *testing.T) {
	tests := []struct {
		status  domain.ApplicationStatus
		wantErr bool
	}{
		{domain.StatusPending, false},
		{domain.StatusIncomplete, true},
		{domain.StatusApproved, true},
		{domain.StatusRejected, true},
		{domain.StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			apps := newFakeApplicationRepo()
			users := newFakeUserRepo()
			users.addUser("user-1", false)
			service := newTestApplicationService(apps, users, false)

			id, _ := apps.CreateApplication(context.Background(), &domain.Application{
				RequestedBy: "user-1",
				Status:      tt.status,
			})

			err := service.Cancel(context.Background(), domain.Actor{ID: "user-1", Role: domain.RoleUser}, id)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected not-found error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if apps.apps[id].Status != domain.StatusCancelled {
				t.Fatalf("expected cancelled, got %s", apps.apps[id].Status)
			}
		})
	}
}

func TestCancel_StrangerGetsNotFound(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusPending,
	})

	err := service.Cancel(context.Background(), domain.Actor{ID: "user-2", Role: domain.RoleUser}, id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if apps.apps[id].Status != domain.StatusPending {
		t.Fatal("application must not be cancelled by a stranger")
	}
}

func TestViewByID_StrangerGetsNotFound(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusPending,
	})

	_, err := service.ViewByID(context.Background(), domain.Actor{ID: "user-2", Role: domain.RoleUser}, id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestViewByID_RejectedReasonOnlyWhenRejected(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)
	reason := "insufficient income"

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy:    "user-1",
		Status:         domain.StatusRejected,
		RejectedReason: &reason,
	})

	owner := domain.Actor{ID: "user-1", Role: domain.RoleUser}

	view, err := service.ViewByID(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.RejectedReason == nil || *view.RejectedReason != reason {
		t.Fatalf("expected rejected reason %q, got %v", reason, view.RejectedReason)
	}

	// The stored reason is stale once the application leaves rejected.
	apps.apps[id].Status = domain.StatusPending
	view, err = service.ViewByID(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.RejectedReason != nil {
		t.Fatalf("rejected reason must be hidden outside rejected status, got %v", *view.RejectedReason)
	}
}

func TestListMine_ExcludesEvaluatorIdentity(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)
	adminID := "admin-1"

	apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusApproved,
		EvaluatedBy: &adminID,
	})

	summaries, err := service.ListMine(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 application, got %d", len(summaries))
	}
	if summaries[0].Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %s", summaries[0].Status)
	}
}

func TestAdminReject_SetsReasonAndEvaluator(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusPending,
	})

	app, err := service.AdminReject(context.Background(), "admin-1", id, "insufficient income")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != domain.StatusRejected {
		t.Fatalf("expected rejected, got %s", app.Status)
	}
	if app.RejectedReason == nil || *app.RejectedReason != "insufficient income" {
		t.Fatalf("expected rejected reason to be set, got %v", app.RejectedReason)
	}
	if app.EvaluatedBy == nil || *app.EvaluatedBy != "admin-1" {
		t.Fatalf("expected evaluator admin-1, got %v", app.EvaluatedBy)
	}
}

func TestAdminReject_RequiresReason(t *testing.T) {
	service := newTestApplicationService(newFakeApplicationRepo(), newFakeUserRepo(), false)

	_, err := service.AdminReject(context.Background(), "admin-1", "app-1", "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminApprove_OnlyFromReviewableStates(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusCancelled,
	})

	_, err := service.AdminApprove(context.Background(), "admin-1", id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for approving a cancelled application, got %v", err)
	}
}

func TestAdminPatchStatus_UnknownAction(t *testing.T) {
	service := newTestApplicationService(newFakeApplicationRepo(), newFakeUserRepo(), false)

	_, err := service.AdminPatchStatus(context.Background(), "admin-1", "app-1", "escalate", "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminPatchStatus_MoreInfoSetsMessage(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusPending,
	})

	app, err := service.AdminPatchStatus(context.Background(), "admin-1", id, "more_info_required", "please attach payslips")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != domain.StatusMoreInfoRequired {
		t.Fatalf("expected more_info_required, got %s", app.Status)
	}
	if app.StatusMessage == nil || *app.StatusMessage != "please attach payslips" {
		t.Fatalf("expected status message to be set, got %v", app.StatusMessage)
	}
	if app.EvaluatedBy != nil {
		t.Fatal("informational transitions must not record an evaluator")
	}
}

func TestPatchFields_RevalidatesInvariant(t *testing.T) {
	apps := newFakeApplicationRepo()
	users := newFakeUserRepo()
	service := newTestApplicationService(apps, users, false)

	id, _ := apps.CreateApplication(context.Background(), &domain.Application{
		RequestedBy: "user-1",
		Status:      domain.StatusIncomplete,
	})
	owner := domain.Actor{ID: "user-1", Role: domain.RoleUser}

	bad := validTerms()
	bad.InstallmentAmount = 1
	if err := service.PatchFields(context.Background(), owner, id, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	good := validTerms()
	good.RequestedLoanAmount = 600
	if err := service.PatchFields(context.Background(), owner, id, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apps.apps[id].RequestedLoanAmount != 600 {
		t.Fatalf("expected amount 600, got %f", apps.apps[id].RequestedLoanAmount)
	}
}

func TestPaymentSize(t *testing.T) {
	service := newTestApplicationService(newFakeApplicationRepo(), newFakeUserRepo(), false)

	for name, amount := range map[string]float64{
		"zero":              0,
		"negative":          -100,
		"not a number":      math.NaN(),
		"positive infinity": math.Inf(1),
		"negative infinity": math.Inf(-1),
	} {
		if _, err := service.PaymentSize(amount); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s amount: expected validation error, got %v", name, err)
		}
	}

	schedule, err := service.PaymentSize(1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedule) != 11 {
		t.Fatalf("expected 11 entries, got %d", len(schedule))
	}
}

func validTerms() domain.LoanTerms {
	return domain.LoanTerms{
		RequestedLoanAmount:  1000,
		NumberOfInstallments: 12,
		InstallmentAmount:    100,
		ApplicantOccupation:  "entrepreneur",
		ApplicantIncome:      6000,
		LoanPurpose:          "bills",
	}
}
