// Package sessions tracks time-bounded authenticated continuity per user id.
//
// A session starts on a positive passphrase claim, is refreshed by every
// subsequent message from the same user, and ends on an end phrase or when it
// has been idle for longer than its timeout. Expiry is evaluated lazily on
// lookup; there is no background sweeper.
package sessions

import (
	"time"

	"github.com/jrsteele09/buddy-auth/users"
)

// State tags where the conversation is within a session.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// Session is the per-user session record. UserID is the caller's own id and
// the store key; Identity is who the caller authenticated as, which differs
// when a passphrase asserts the master identity.
type Session struct {
	UserID        string        `json:"user_id"`
	Identity      string        `json:"identity"`
	Authenticated bool          `json:"authenticated"`
	Role          users.Role    `json:"role"`
	Method        string        `json:"method"`
	State         State         `json:"state"`
	Turns         int           `json:"turns"`
	StartedAt     time.Time     `json:"started_at"`
	LastActivity  time.Time     `json:"last_activity"`
	IdleTimeout   time.Duration `json:"idle_timeout"`
}

// Expired reports whether the session is no longer usable at now. An
// unauthenticated session is always expired.
func (s *Session) Expired(now time.Time) bool {
	if !s.Authenticated {
		return true
	}
	return now.Sub(s.LastActivity) > s.IdleTimeout
}

// Remaining is the idle time left before the session expires.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return s.IdleTimeout - now.Sub(s.LastActivity)
}
