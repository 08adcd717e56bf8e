// Package session holds the login state of one docctl process.
//
// A Session is created by the caller and handed to the API client; nothing
// is kept in package-level state or on disk.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Roles assigned at login.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrNoToken is returned by Claims when the session holds no token.
var ErrNoToken = errors.New("no token in session")

// User is the identity derived at login.
type User struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user has an administrative role.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == "administrator")
}

// Session is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	token   string
	user    *User
	onClear []func()
}

// New returns a session, optionally seeded with a token from flags,
// configuration or the environment. A seeded session has no user until
// Set is called; callers fall back to the user role.
func New(token string) *Session {
	return &Session{token: token}
}

// Token returns the bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the logged-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Set replaces the token and user.
func (s *Session) Set(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
}

// IsAuthenticated reports whether a token is present. Expiry is not checked;
// the server answers 401 for stale tokens and the client clears the session.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// OnClear registers fn to run after every Clear that dropped a token.
func (s *Session) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Clear drops the token and user.
func (s *Session) Clear() {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.user = nil
	hooks := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	if had {
		for _, fn := range hooks {
			fn()
		}
	}
}

// Claims decodes the payload segment of the JWT held by the session. The
// signature is not verified.
func (s *Session) Claims() (map[string]any, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNoToken
	}
	return DecodeClaims(token)
}

// DecodeClaims decodes the payload segment of a JWT without verifying it.
func DecodeClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim, if present.
func ExpiresAt(claims map[string]any) (time.Time, bool) {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}
