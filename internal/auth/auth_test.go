package auth

import (
	"testing"
	"time"

	"github.com/abaev/quizdrill/internal/model"
)

const testSecret = "test-secret"

func TestVerifyRoundTrip(t *testing.T) {
	token, err := SignToken(testSecret, "user@example.com", "Test User", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	v := NewTokenVerifier(testSecret)
	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Email != "user@example.com" {
		t.Errorf("email = %q", p.Email)
	}
	if p.Name != "Test User" {
		t.Errorf("name = %q", p.Name)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	if _, err := v.Verify("not-a-token"); err != ErrInvalidToken {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}

	wrongKey, err := SignToken("other-secret", "user@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if _, err := v.Verify(wrongKey); err != ErrInvalidToken {
		t.Errorf("wrong secret: got %v, want ErrInvalidToken", err)
	}

	expired, err := SignToken(testSecret, "user@example.com", "", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if _, err := v.Verify(expired); err != ErrInvalidToken {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}

	noEmail, err := SignToken(testSecret, "", "Anonymous", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if _, err := v.Verify(noEmail); err != ErrInvalidToken {
		t.Errorf("missing email claim: got %v, want ErrInvalidToken", err)
	}
}

func TestAuthorizeExactMatch(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		allowed string
		wantErr bool
	}{
		{"match", "user@example.com", "user@example.com", false},
		{"different user", "other@example.com", "user@example.com", true},
		{"case differs", "User@example.com", "user@example.com", true},
		{"empty allow list", "user@example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(model.Principal{Email: tt.email}, tt.allowed)
			if (err != nil) != tt.wantErr {
				t.Errorf("Authorize(%q, %q) = %v", tt.email, tt.allowed, err)
			}
		})
	}
}
