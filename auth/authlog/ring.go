package authlog

import "sync"

// DefaultCapacity is the number of entries kept when no capacity is configured.
const DefaultCapacity = 1000

var _ Repo = (*RingRepo)(nil)

// RingRepo is a fixed-capacity Repo. Once full, each append overwrites the oldest entry.
type RingRepo struct {
	mu      sync.RWMutex
	entries []Entry
	next    int // slot for the next append
	size    int
}

// NewRingRepo creates a ring of the given capacity. A capacity <= 0 uses DefaultCapacity.
func NewRingRepo(capacity int) *RingRepo {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingRepo{
		entries: make([]Entry, capacity),
	}
}

func (r *RingRepo) Append(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

func (r *RingRepo) Recent(limit int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > r.size {
		limit = r.size
	}

	out := make([]Entry, 0, limit)
	start := r.next - limit
	if start < 0 {
		start += len(r.entries)
	}
	for i := 0; i < limit; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

func (r *RingRepo) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleared := r.size
	r.entries = make([]Entry, len(r.entries))
	r.next = 0
	r.size = 0
	return cleared
}

func (r *RingRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of entries kept.
func (r *RingRepo) Capacity() int {
	return len(r.entries)
}
