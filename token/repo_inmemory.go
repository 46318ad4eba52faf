package token

import (
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a process-local Repo.
type InMemoryRepo struct {
	mu     sync.RWMutex
	tokens map[string]*Record
}

// NewInMemoryRepo creates an empty in-memory token repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tokens: make(map[string]*Record),
	}
}

func (r *InMemoryRepo) Upsert(record *Record) error {
	if record == nil || record.Token == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "token record requires a token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	r.tokens[record.Token] = &stored
	return nil
}

func (r *InMemoryRepo) Get(token string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.tokens[token]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "token")
	}
	found := *record
	return &found, nil
}

func (r *InMemoryRepo) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return apperrors.Wrapf(apperrors.ErrNotFound, "token")
	}
	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRepo) List(offset, limit int) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*Record, 0, len(r.tokens))
	for _, v := range r.tokens {
		record := *v
		records = append(records, &record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].IssuedAt.Before(records[j].IssuedAt)
	})

	if offset >= len(records) {
		return []*Record{}, nil
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end], nil
}

func (r *InMemoryRepo) DeleteExpired(now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, record := range r.tokens {
		if record.Expired(now) {
			delete(r.tokens, token)
			removed++
		}
	}
	return removed, nil
}

func (r *InMemoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
