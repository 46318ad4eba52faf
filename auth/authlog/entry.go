// Package authlog keeps a bounded, in-memory record of authentication attempts.
// It is read for diagnostics and admin reporting only; nothing in it feeds an
// authorization decision.
package authlog

import (
	"time"

	"github.com/jrsteele09/buddy-auth/users"
)

// Entry is one authentication attempt.
type Entry struct {
	ID             string     `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	Authenticated  bool       `json:"authenticated"`
	UserID         string     `json:"user_id"`
	Role           users.Role `json:"role"`
	Method         string     `json:"method"`
	DeviceID       *string    `json:"device_id,omitempty"`
	UserAgent      string     `json:"user_agent"`
	ClientIP       string     `json:"client_ip"`
	MessageLength  int        `json:"message_length"`
	HasAuthKeyword bool       `json:"has_auth_keyword"`
	Flags          []string   `json:"flags,omitempty"`  // suspicious content markers
	Faults         []string   `json:"faults,omitempty"` // evaluators that failed and were skipped
}

// Repo stores authentication log entries.
type Repo interface {
	// Append records an entry, evicting the oldest once capacity is reached
	Append(entry Entry)

	// Recent returns up to limit of the newest entries, oldest first. limit <= 0 returns everything
	Recent(limit int) []Entry

	// Clear empties the log and reports how many entries were dropped
	Clear() int

	// Len returns the number of stored entries
	Len() int
}
