package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(42, "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, role, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("user id = %d, want 42", userID)
	}
	if role != "member" {
		t.Errorf("role = %q, want %q", role, "member")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Issue(1, "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, _, err := other.Verify(token); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(1, "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, _, err := issuer.Verify(token); err == nil {
		t.Error("expected verification failure for expired token")
	}
}

func TestTokenGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, _, err := issuer.Verify("not-a-token"); err == nil {
		t.Error("expected verification failure for malformed token")
	}
}
