package token

import (
	"testing"

	"github.com/loanapp/loan-service/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:        "user-1",
		Role:      domain.RoleUser,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	}
}

func TestLoginTokenRoundTrip(t *testing.T) {
	manager, err := NewManager("test-secret", "30m")
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	signed, err := manager.IssueLoginToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := manager.VerifyLoginToken(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.Role != "user" || claims.Email != "jane@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewManager("secret-a", "30m")
	verifier, _ := NewManager("secret-b", "30m")

	signed, err := issuer.IssueLoginToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifier.VerifyLoginToken(signed); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager, _ := NewManager("test-secret", "30m")

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.VerifyLoginToken(tok); err == nil {
			t.Fatalf("expected %q to fail verification", tok)
		}
	}
}

func TestRefreshLoginToken(t *testing.T) {
	manager, _ := NewManager("test-secret", "30m")

	signed, err := manager.IssueLoginToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := manager.VerifyLoginToken(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	refreshed, err := manager.RefreshLoginToken(claims)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fresh, err := manager.VerifyLoginToken(refreshed)
	if err != nil {
		t.Fatalf("verify refreshed: %v", err)
	}
	if fresh.Subject != claims.Subject || fresh.Email != claims.Email {
		t.Fatalf("identity claims changed on refresh: %+v", fresh)
	}
}

func TestRecoveryTokenRoundTrip(t *testing.T) {
	manager, _ := NewManager("test-secret", "30m")

	signed, err := manager.IssueRecoveryToken("jane@example.com", "one-time-token")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := manager.VerifyRecoveryToken(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "jane@example.com" || claims.RecoveryToken != "one-time-token" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager("", "30m"); err == nil {
		t.Fatal("empty secret must be rejected")
	}
	if _, err := NewManager("secret", "sometimes"); err == nil {
		t.Fatal("bad duration must be rejected")
	}
}
