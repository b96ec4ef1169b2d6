/**
 * @description
 * This package issues and verifies the service's HS256 JWTs: login tokens
 * carrying the user's identity claims, and short-lived password-recovery
 * tokens carrying the one-time recovery token stored on the user row.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Token signing and parsing.
 */
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loanapp/loan-service/internal/domain"
)

// recoveryTokenTTL bounds how long a password-recovery link stays usable.
const recoveryTokenTTL = 30 * time.Minute

// LoginClaims are the claims embedded in a login token.
type LoginClaims struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// RecoveryClaims are the claims embedded in a password-recovery token.
type RecoveryClaims struct {
	Email         string `json:"email"`
	RecoveryToken string `json:"recoveryToken"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single shared secret.
type Manager struct {
	secret   []byte
	duration time.Duration
}

// NewManager creates a Manager. duration is the login-token lifetime in the
// Go duration format (e.g. "30m").
func NewManager(secret, duration string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt duration %q: %w", duration, err)
	}
	return &Manager{secret: []byte(secret), duration: d}, nil
}

// IssueLoginToken creates a signed login token for the user.
func (m *Manager) IssueLoginToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := LoginClaims{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// RefreshLoginToken re-signs the claims of a still-valid token with a new
// expiry.
func (m *Manager) RefreshLoginToken(claims *LoginClaims) (string, error) {
	now := time.Now()
	fresh := *claims
	fresh.IssuedAt = jwt.NewNumericDate(now)
	fresh.ExpiresAt = jwt.NewNumericDate(now.Add(m.duration))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, fresh).SignedString(m.secret)
}

// VerifyLoginToken parses and validates a login token.
func (m *Manager) VerifyLoginToken(tokenString string) (*LoginClaims, error) {
	claims := &LoginClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueRecoveryToken creates a signed password-recovery token. recoveryToken
// is the one-time value stored on the user row; both must match at redeem
// time.
func (m *Manager) IssueRecoveryToken(email, recoveryToken string) (string, error) {
	now := time.Now()
	claims := RecoveryClaims{
		Email:         email,
		RecoveryToken: recoveryToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(recoveryTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyRecoveryToken parses and validates a password-recovery token.
func (m *Manager) VerifyRecoveryToken(tokenString string) (*RecoveryClaims, error) {
	claims := &RecoveryClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string, claims jwt.Claims) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return errors.New("token validation failed")
	}
	return nil
}
