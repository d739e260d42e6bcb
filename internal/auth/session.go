package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a session stays valid without renewal.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Clock abstracts time retrieval so expiry is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SessionManager issues and validates opaque session tokens. Sessions live
// in memory only; a restart logs everyone out, which is acceptable for a
// single-household deployment.
type SessionManager struct {
	clock Clock
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
}

// NewSessionManager creates a session manager. A nil clock uses real time.
func NewSessionManager(ttl time.Duration, clock Clock) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = realClock{}
	}
	return &SessionManager{
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[string]time.Time),
	}
}

// Create issues a new session token.
func (m *SessionManager) Create() string {
	token := uuid.New().String()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = m.clock.Now().Add(m.ttl)
	return token
}

// Valid reports whether token identifies a live session, and renews it.
// Expired sessions are removed as they are seen.
func (m *SessionManager) Valid(token string) bool {
	if token == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.sessions[token]
	if !ok {
		return false
	}
	now := m.clock.Now()
	if now.After(expiry) {
		delete(m.sessions, token)
		return false
	}
	m.sessions[token] = now.Add(m.ttl)
	return true
}

// Revoke removes a session.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}
