package security

import (
	"sync"
	"time"
)

// DefaultSessionTimeout is the idle lifetime of a login session.
const DefaultSessionTimeout = 30 * time.Minute

// SessionTracker tracks login sessions by token and expires them after a
// fixed timeout. Expired entries are dropped lazily on lookup.
type SessionTracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	sessions map[string]session
	now      func() time.Time
}

type session struct {
	phone   string
	started time.Time
}

func NewSessionTracker(timeout time.Duration) *SessionTracker {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionTracker{
		timeout:  timeout,
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// Start registers a session token for the given account.
func (t *SessionTracker) Start(token, phone string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[token] = session{phone: phone, started: t.now()}
}

// Lookup returns the account a live token belongs to. Expired or unknown
// tokens return ok=false; expired entries are removed.
func (t *SessionTracker) Lookup(token string) (phone string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, found := t.sessions[token]
	if !found {
		return "", false
	}
	if t.now().Sub(s.started) >= t.timeout {
		delete(t.sessions, token)
		return "", false
	}
	return s.phone, true
}

// End discards a session token.
func (t *SessionTracker) End(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, token)
}
