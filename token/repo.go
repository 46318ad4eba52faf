package token

import (
	"time"

	"github.com/jrsteele09/buddy-auth/users"
)

// Record is the server-side state behind an issued token. A token is only
// accepted while its record is present, which is what makes revocation instant.
type Record struct {
	Token     string     // The signed token string (map key)
	ID        string     // jti claim
	UserID    string     // Identity the token was issued to
	Role      users.Role // Role recorded at issuance
	DeviceID  *string    // Device the issuing identity authenticated from, if any
	Method    string     // Authentication method that led to issuance
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record's own expiry has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Repo stores the active-token map.
type Repo interface {
	// Upsert creates or replaces the record for record.Token
	Upsert(record *Record) error

	// Get returns the record for a token, or an error wrapping ErrNotFound
	Get(token string) (*Record, error)

	// Delete removes a token; deleting an unknown token returns an error wrapping ErrNotFound
	Delete(token string) error

	// List returns records ordered by issue time
	List(offset, limit int) ([]*Record, error)

	// DeleteExpired removes every record whose ExpiresAt is before now and reports how many went
	DeleteExpired(now time.Time) (int, error)

	// Count returns the number of stored records
	Count() int
}
