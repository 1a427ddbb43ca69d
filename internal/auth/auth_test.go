package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T, ttl time.Duration) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	return New(Config{Username: "editor", PasswordHash: string(hash), TTL: ttl}, nil)
}

func TestLogin(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)

	s, err := a.Login("editor", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.Token == "" || s.User != "editor" {
		t.Errorf("unexpected session %+v", s)
	}
	if !s.Valid(time.Now()) {
		t.Errorf("expected fresh session to be valid")
	}

	got, err := a.Lookup(s.Token)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Token != s.Token {
		t.Errorf("Lookup returned %q, want %q", got.Token, s.Token)
	}

	a.Logout(s.Token)
	if _, err := a.Lookup(s.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession after logout, got %v", err)
	}
}

func TestLogin_Rejected(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)

	tests := []struct{ user, pass string }{
		{"editor", "wrong"},
		{"admin", "s3cret"},
		{"", ""},
	}
	for _, tt := range tests {
		if _, err := a.Login(tt.user, tt.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q): expected ErrInvalidCredentials, got %v", tt.user, tt.pass, err)
		}
	}

	if _, err := New(Config{}, nil).Login("editor", "s3cret"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLookup_Expired(t *testing.T) {
	a := newTestAuthenticator(t, time.Minute)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	s, err := a.Login("editor", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := a.Lookup(s.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := a.Lookup(s.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected expired session to be forgotten, got %v", err)
	}
}

func TestSession_Valid(t *testing.T) {
	now := time.Now()
	if (Session{}).Valid(now) {
		t.Errorf("zero session must be invalid")
	}
	if !LocalSession("cli").Valid(now.Add(24 * 365 * time.Hour)) {
		t.Errorf("local session must not expire")
	}
	if (Session{Token: "x", ExpiresAt: now.Add(-time.Second)}).Valid(now) {
		t.Errorf("expired session must be invalid")
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
	if _, err := HashPassword(""); err == nil {
		t.Errorf("expected error for empty password")
	}
}
