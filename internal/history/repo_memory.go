package history

import (
	"context"
	"sort"
	"sync"

	"inspection-platform/internal/calls"
)

// MemoryRepo is an in-memory append-only trail keyed by call number.
// It backs the service in every deployment; a durable copy lives in the data store.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries map[string][]calls.HistoryEntry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: map[string][]calls.HistoryEntry{}}
}

func (r *MemoryRepo) Append(ctx context.Context, e calls.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.CallNumber] = append(r.entries[e.CallNumber], e)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, callNumber string) ([]calls.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.entries[callNumber]
	out := make([]calls.HistoryEntry, len(src))
	copy(out, src)
	return out, nil
}

// Load replaces all entries. Input is grouped by call and ordered by timestamp;
// entries with equal timestamps keep their input order.
func (r *MemoryRepo) Load(ctx context.Context, entries []calls.HistoryEntry) error {
	next := map[string][]calls.HistoryEntry{}
	for _, e := range entries {
		next[e.CallNumber] = append(next[e.CallNumber], e)
	}
	for k := range next {
		list := next[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	}
	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
	return nil
}

// Count returns the number of entries for one call.
func (r *MemoryRepo) Count(callNumber string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[callNumber])
}
