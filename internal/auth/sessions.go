package auth

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is how long an admin session stays valid.
const SessionTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidPassword reports a failed admin login.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrLoginDisabled reports that no admin password is configured.
	ErrLoginDisabled = errors.New("admin login disabled")
)

// Sessions issues and checks in-memory admin sessions.
type Sessions struct {
	password string
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

// NewSessions returns a session manager for password. An empty password
// disables login.
func NewSessions(password string) *Sessions {
	return &Sessions{
		password: password,
		ttl:      SessionTTL,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Enabled reports whether an admin password is configured.
func (s *Sessions) Enabled() bool {
	return s != nil && s.password != ""
}

// Login checks password and returns a new session id with its expiry.
func (s *Sessions) Login(password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrLoginDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return "", time.Time{}, ErrInvalidPassword
	}

	id := uuid.NewString()
	expires := s.now().Add(s.ttl)

	s.mu.Lock()
	s.prune()
	s.sessions[id] = expires
	s.mu.Unlock()

	return id, expires, nil
}

// Valid reports whether id names a live session.
func (s *Sessions) Valid(id string) bool {
	if s == nil || id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.sessions[id]
	if !ok {
		return false
	}
	if !s.now().Before(expires) {
		delete(s.sessions, id)
		return false
	}
	return true
}

// Logout forgets id.
func (s *Sessions) Logout(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// prune drops expired sessions. Callers hold s.mu.
func (s *Sessions) prune() {
	now := s.now()
	for id, expires := range s.sessions {
		if !now.Before(expires) {
			delete(s.sessions, id)
		}
	}
}
