package sessions

import (
	"sync"

	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps one lockable entry per user id, so that mutations for a
// user are serialised without blocking other users.
type InMemoryRepo struct {
	entries sync.Map // user id -> *entry
}

type entry struct {
	mu      sync.Mutex
	session *Session
	removed bool // set once the entry has left the map; writers must reload
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) Get(userID string) (*Session, error) {
	v, ok := r.entries.Load(userID)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrSessionNotFound, "user %q", userID)
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, apperrors.Wrapf(apperrors.ErrSessionNotFound, "user %q", userID)
	}
	found := *e.session
	return &found, nil
}

func (r *InMemoryRepo) Update(userID string, fn UpdateFunc) error {
	for {
		v, _ := r.entries.LoadOrStore(userID, &entry{})
		e := v.(*entry)

		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}

		var current *Session
		if e.session != nil {
			c := *e.session
			current = &c
		}

		next, err := fn(current)
		if err != nil {
			r.dropIfEmpty(userID, e)
			e.mu.Unlock()
			return err
		}

		if next == nil {
			e.session = nil
		} else {
			stored := *next
			e.session = &stored
		}
		r.dropIfEmpty(userID, e)
		e.mu.Unlock()
		return nil
	}
}

// dropIfEmpty must be called with e.mu held.
func (r *InMemoryRepo) dropIfEmpty(userID string, e *entry) {
	if e.session != nil {
		return
	}
	e.removed = true
	r.entries.CompareAndDelete(userID, e)
}

func (r *InMemoryRepo) Delete(userID string) error {
	found := false
	err := r.Update(userID, func(current *Session) (*Session, error) {
		found = current != nil
		return nil, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return apperrors.Wrapf(apperrors.ErrSessionNotFound, "user %q", userID)
	}
	return nil
}

func (r *InMemoryRepo) List() []*Session {
	var out []*Session
	r.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.session != nil {
			s := *e.session
			out = append(out, &s)
		}
		e.mu.Unlock()
		return true
	})
	return out
}
