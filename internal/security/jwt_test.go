package security

import (
	"strings"
	"testing"
	"time"

	"stagelink/internal/common"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	provider := NewJWTProvider("test-secret")
	userID := common.NewUUID()

	token, expiresAt, err := provider.Generate(userID, "company", time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := provider.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != string(userID) {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != "company" {
		t.Fatalf("expected role company, got %s", claims.Role)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	provider := NewJWTProvider("test-secret")
	token, _, err := provider.Generate(common.NewUUID(), "student", time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := provider.Parse(tampered); err == nil {
		t.Fatal("expected tampered token to fail")
	}

	other := NewJWTProvider("other-secret")
	if _, err := other.Parse(token); err == nil {
		t.Fatal("expected wrong-secret parse to fail")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	provider := NewJWTProvider("test-secret")
	token, _, err := provider.Generate(common.NewUUID(), "student", -time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := provider.Parse(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
