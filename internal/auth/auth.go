// Package auth checks operator credentials and issues the session tokens
// that authorize batch runs.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotConfigured      = errors.New("no credentials configured")
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 12 * time.Hour

// Session is the proof of a successful login. It is passed explicitly to
// every batch run.
type Session struct {
	Token     string    `json:"token"`
	User      string    `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Valid reports whether the session carries a token and has not expired at
// now. A zero ExpiresAt never expires.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// LocalSession returns a non-expiring session for an operator running the
// CLI on their own machine.
func LocalSession(user string) Session {
	return Session{Token: uuid.NewString(), User: user, IssuedAt: time.Now().UTC()}
}

// HashPassword returns the bcrypt hash to put in configuration.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Config holds the single operator account.
type Config struct {
	Username     string
	PasswordHash string
	TTL          time.Duration
}

// Authenticator validates credentials and tracks issued sessions in memory.
type Authenticator struct {
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]Session
}

// New creates an Authenticator.
func New(cfg Config, logger *slog.Logger) *Authenticator {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Login checks username and password and issues a new session.
func (a *Authenticator) Login(username, password string) (Session, error) {
	if a.cfg.Username == "" || a.cfg.PasswordHash == "" {
		return Session{}, ErrNotConfigured
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		a.logger.Warn("login rejected", "user", username)
		return Session{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	s := Session{
		Token:     uuid.NewString(),
		User:      username,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.cfg.TTL),
	}

	a.mu.Lock()
	a.sessions[s.Token] = s
	a.purgeLocked(now)
	a.mu.Unlock()

	a.logger.Info("login succeeded", "user", username)
	return s, nil
}

// Lookup returns the live session for token.
func (a *Authenticator) Lookup(token string) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[token]
	if !ok || token == "" {
		return Session{}, ErrInvalidSession
	}
	if !s.Valid(a.now()) {
		delete(a.sessions, token)
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

// Logout forgets token. Unknown tokens are ignored.
func (a *Authenticator) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

func (a *Authenticator) purgeLocked(now time.Time) {
	for tok, s := range a.sessions {
		if !s.Valid(now) {
			delete(a.sessions, tok)
		}
	}
}
