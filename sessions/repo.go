package sessions

// UpdateFunc receives the current session for a user (nil when there is none)
// and returns the session to store. Returning nil deletes the record.
type UpdateFunc func(current *Session) (*Session, error)

// Repo stores sessions keyed by user id.
type Repo interface {
	// Get returns a copy of the user's session, or an error wrapping ErrSessionNotFound
	Get(userID string) (*Session, error)

	// Update applies fn atomically for one user id. Updates for distinct user ids do not contend
	Update(userID string, fn UpdateFunc) error

	// Delete removes the user's session; unknown users return an error wrapping ErrSessionNotFound
	Delete(userID string) error

	// List returns copies of every stored session
	List() []*Session
}
