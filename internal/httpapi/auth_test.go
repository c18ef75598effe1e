package httpapi

import (
	"testing"
	"time"

	"tokopos/backend/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("secret", time.Hour, 24*time.Hour)
	user := domain.UserAccount{ID: 7, Username: "kasir", Role: domain.RoleCashier}

	access, refresh, expiresAt, err := auth.IssueTokens(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Fatalf("access token already expired")
	}

	actor, err := auth.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if actor.UserID != 7 || actor.Username != "kasir" || actor.Role != domain.RoleCashier {
		t.Fatalf("unexpected actor %+v", actor)
	}

	userID, err := auth.ParseRefreshToken(refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if userID != 7 {
		t.Fatalf("expected user id 7, got %d", userID)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	auth := NewAuthManager("secret", time.Hour, 24*time.Hour)
	user := domain.UserAccount{ID: 1, Username: "admin", Role: domain.RoleAdmin}

	access, refresh, _, err := auth.IssueTokens(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if _, err := auth.ParseAccessToken(refresh); err == nil {
		t.Fatalf("refresh token must not pass as access token")
	}
	if _, err := auth.ParseRefreshToken(access); err == nil {
		t.Fatalf("access token must not pass as refresh token")
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthManager("secret-a", time.Hour, 24*time.Hour)
	verifier := NewAuthManager("secret-b", time.Hour, 24*time.Hour)

	access, _, _, err := issuer.IssueTokens(domain.UserAccount{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if _, err := verifier.ParseAccessToken(access); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := NewAuthManager("secret", time.Nanosecond, time.Nanosecond)

	access, _, _, err := auth.IssueTokens(domain.UserAccount{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := auth.ParseAccessToken(access); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}
