/**
 * @description
 * This file implements the account use-cases: signup, login, token refresh,
 * profile reads and updates, password recovery and e-mail verification.
 *
 * @notes
 * - Login failures are indistinguishable on purpose: a wrong password and an
 *   unknown e-mail both answer domain.ErrInvalidCredentials.
 * - All outgoing e-mails go through the notification outbox so the triggering
 *   write and the notification are committed together where it matters.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/internal/store"
	"github.com/loanapp/loan-service/pkg/ratelimit"
	"github.com/loanapp/loan-service/pkg/token"
)

const bcryptCost = 10

// AuthService provides account and session use-cases.
type AuthService struct {
	users         store.UserRepository
	verifications store.VerificationRepository
	outbox        store.OutboxRepository
	tokens        *token.Manager
	loginLimiter  *ratelimit.AttemptLimiter
	frontendURL   string
	logger        *slog.Logger
}

// NewAuthService creates a new instance of AuthService. loginLimiter may be
// nil-backed; limiting then degrades to always-allow.
func NewAuthService(
	users store.UserRepository,
	verifications store.VerificationRepository,
	outbox store.OutboxRepository,
	tokens *token.Manager,
	loginLimiter *ratelimit.AttemptLimiter,
	frontendURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		verifications: verifications,
		outbox:        outbox,
		tokens:        tokens,
		loginLimiter:  loginLimiter,
		frontendURL:   frontendURL,
		logger:        logger,
	}
}

// SignupInput carries the fields required to register an account.
type SignupInput struct {
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	DateOfBirth     *time.Time     `json:"dateOfBirth,omitempty"`
	ApplicantGender *string        `json:"applicantGender,omitempty"`
	Address         domain.Address `json:"address"`
}

func (in SignupInput) validate() error {
	if in.FirstName == "" || in.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", domain.ErrValidation)
	}
	if in.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	return nil
}

// Signup registers a regular user account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (string, error) {
	return s.createAccount(ctx, in, domain.RoleUser)
}

// CreateAdmin registers an admin account. The router gates this behind the
// deployment toggle and the admin-creation key.
func (s *AuthService) CreateAdmin(ctx context.Context, in SignupInput) (string, error) {
	return s.createAccount(ctx, in, domain.RoleAdmin)
}

func (s *AuthService) createAccount(ctx context.Context, in SignupInput, role domain.Role) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Role:            role,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		HashedPassword:  string(hashed),
		DateOfBirth:     in.DateOfBirth,
		ApplicantGender: in.ApplicantGender,
		Address:         in.Address,
	}

	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return "", domain.ErrEmailExists
		}
		return "", err
	}

	s.logger.Info("account created", "id", id, "role", role)
	return id, nil
}

// Login authenticates a user and returns a signed login token. When
// adminOnly is set, a valid non-admin credential still fails with
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, adminOnly bool) (string, error) {
	if !s.loginLimiter.Allow(ctx, email) {
		return "", domain.ErrTooManyAttempts
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	if adminOnly && user.Role != domain.RoleAdmin {
		return "", domain.ErrInvalidCredentials
	}

	signed, err := s.tokens.IssueLoginToken(user)
	if err != nil {
		return "", fmt.Errorf("issuing login token: %w", err)
	}

	s.loginLimiter.Reset(ctx, email)
	return signed, nil
}

// Refresh re-issues a login token from the still-valid claims of the
// current one.
func (s *AuthService) Refresh(claims *token.LoginClaims) (string, error) {
	return s.tokens.RefreshLoginToken(claims)
}

// GetUser returns an account. Users may read their own; admins may read any.
func (s *AuthService) GetUser(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	if actor.ID != id && actor.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}
	return s.users.FindUserByID(ctx, id)
}

// PatchProfile updates the caller's own profile fields. Nobody edits someone
// else's profile, admins included.
func (s *AuthService) PatchProfile(ctx context.Context, actor domain.Actor, id string, profile domain.UserProfile) error {
	if actor.ID != id {
		return domain.ErrUnauthorized
	}
	if profile.FirstName == "" || profile.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", domain.ErrValidation)
	}
	return s.users.UpdateUserProfile(ctx, id, profile)
}

// RequestPasswordRecovery starts the password-reset flow. It succeeds
// whether or not the e-mail is registered, so the endpoint cannot be used to
// probe for accounts.
func (s *AuthService) RequestPasswordRecovery(ctx context.Context, email string) error {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	recoveryToken := uuid.NewString()
	signed, err := s.tokens.IssueRecoveryToken(user.Email, recoveryToken)
	if err != nil {
		return fmt.Errorf("issuing recovery token: %w", err)
	}

	if err := s.users.SetRecoveryToken(ctx, user.ID, &recoveryToken); err != nil {
		return err
	}

	return s.outbox.EnqueueEvent(ctx, store.OutboxEvent{
		Exchange:   NotificationExchange,
		RoutingKey: RoutingKeyRecoveryEmail,
		Payload: domain.PasswordRecoveryEmailEvent{
			Recipient:   user.Email,
			Name:        user.FirstName,
			RecoveryURL: fmt.Sprintf("%s/password-reset?token=%s", s.frontendURL, signed),
		},
	})
}

// UpdatePasswordWithRecovery redeems a recovery token and sets a new
// password. The stored one-time token is cleared so the link cannot be
// replayed.
func (s *AuthService) UpdatePasswordWithRecovery(ctx context.Context, signedToken, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	claims, err := s.tokens.VerifyRecoveryToken(signedToken)
	if err != nil {
		return fmt.Errorf("%w: invalid or expired recovery token", domain.ErrValidation)
	}

	user, err := s.users.FindUserByEmailAndRecoveryToken(ctx, claims.Email, claims.RecoveryToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired recovery token", domain.ErrValidation)
		}
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return err
	}

	s.logger.Info("password updated via recovery", "user", user.ID)
	return s.outbox.EnqueueEvent(ctx, store.OutboxEvent{
		Exchange:   NotificationExchange,
		RoutingKey: RoutingKeyPasswordChangedEmail,
		Payload: domain.PasswordChangedEmailEvent{
			Recipient: user.Email,
			Name:      user.FirstName,
		},
	})
}

// SendVerificationCode issues (or re-issues) a 6-digit e-mail verification
// code. A still-valid code enforces a cool-off instead of minting a new one.
func (s *AuthService) SendVerificationCode(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	now := time.Now()

	existing, err := s.verifications.FindVerificationByEmail(ctx, email)
	if err != nil {
		return err
	}

	code := verificationCode()
	expires := now.Add(domain.VerificationCodeTTL)

	switch {
	case existing == nil:
		if _, err := s.verifications.CreateVerification(ctx, email, code, expires); err != nil {
			if errors.Is(err, store.ErrVerificationExists) {
				return fmt.Errorf("%w: a verification code was sent recently", domain.ErrTooManyAttempts)
			}
			return err
		}
	case existing.Verified:
		return fmt.Errorf("%w: email is already verified", domain.ErrValidation)
	case existing.InCoolOff(now):
		return fmt.Errorf("%w: a verification code was sent recently", domain.ErrTooManyAttempts)
	default:
		if err := s.verifications.RefreshVerification(ctx, existing.ID, code, expires); err != nil {
			return err
		}
	}

	return s.outbox.EnqueueEvent(ctx, store.OutboxEvent{
		Exchange:   NotificationExchange,
		RoutingKey: RoutingKeyVerificationEmail,
		Payload: domain.VerificationCodeEmailEvent{
			Recipient: email,
			Code:      code,
		},
	})
}

// VerifyEmail redeems a verification code. It reports whether the claim
// succeeded; a false result is not an error.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (bool, error) {
	if email == "" || code == "" {
		return false, fmt.Errorf("%w: email and code are required", domain.ErrValidation)
	}
	return s.verifications.ClaimVerificationCode(ctx, email, code, time.Now())
}

// IsEmailVerified reports whether the address completed verification.
func (s *AuthService) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	v, err := s.verifications.FindVerificationByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return v != nil && v.Verified, nil
}

func verificationCode() string {
	return fmt.Sprintf("%06d", rand.IntN(900000)+100000)
}
