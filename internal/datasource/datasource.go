package datasource

import (
	"context"
	"errors"
	"sync"

	"inspection-platform/internal/calls"
	"inspection-platform/internal/registry"
)

var (
	// ErrVersionMismatch means the stored row moved on since the caller read it.
	ErrVersionMismatch = errors.New("datasource: version mismatch")
	ErrNotConfigured   = errors.New("datasource: not configured")
)

// Snapshot is everything a source can hand to the registry in one fetch.
type Snapshot struct {
	Pending  []calls.Call
	Verified []calls.Call
	Disposed []calls.Call
	Offices  []calls.RegionalOffice
	// History is optional; sources without a durable trail leave it nil.
	History []calls.HistoryEntry
}

// Registry returns the call part of the snapshot in registry form.
func (s Snapshot) Registry() registry.Snapshot {
	return registry.Snapshot{Pending: s.Pending, Verified: s.Verified, Disposed: s.Disposed}
}

// Add places a call into the bucket matching its status.
func (s *Snapshot) Add(c calls.Call) error {
	switch c.Bucket() {
	case calls.BucketPendingVerification:
		s.Pending = append(s.Pending, c)
	case calls.BucketVerifiedOpen:
		s.Verified = append(s.Verified, c)
	case calls.BucketDisposed:
		s.Disposed = append(s.Disposed, c)
	default:
		return calls.InvariantViolation("call %s has unknown status %q", c.CallNumber, c.Status)
	}
	return nil
}

// Source loads the full working set.
type Source interface {
	FetchAll(ctx context.Context) (Snapshot, error)
}

// Change is one lifecycle transition as it must be persisted: the call after the
// transition plus the history entry that records it.
type Change struct {
	Call            calls.Call
	ExpectedVersion int64
	Entry           calls.HistoryEntry
}

// Store durably records transitions. SaveTransition is all-or-nothing.
type Store interface {
	SaveTransition(ctx context.Context, ch Change) error
}

// MemoryStore keeps transitions in memory. It is the store used with fixture data.
type MemoryStore struct {
	mu      sync.Mutex
	changes []Change
	fail    error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveTransition(ctx context.Context, ch Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ch.Call = ch.Call.Clone()
	s.changes = append(s.changes, ch)
	return nil
}

// FailWith makes every following write return err; nil restores normal behavior.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *MemoryStore) Changes() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, len(s.changes))
	copy(out, s.changes)
	return out
}
