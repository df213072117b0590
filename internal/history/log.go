package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"inspection-platform/internal/calls"
)

// Repository is the storage contract for history entries.
//
// It MUST be append-only: there is no Update or Delete.
// List returns entries for one call in insertion order.
type Repository interface {
	Append(ctx context.Context, e calls.HistoryEntry) error
	List(ctx context.Context, callNumber string) ([]calls.HistoryEntry, error)
}

// Loader is implemented by repositories that can be rehydrated after a reload.
type Loader interface {
	Load(ctx context.Context, entries []calls.HistoryEntry) error
}

var (
	ErrCallNumberRequired = errors.New("history: call number required")
	ErrNotConfigured      = errors.New("history: repository not configured")
)

// Log is the per-call audit trail. Every lifecycle transition produces exactly one entry.
type Log struct {
	repo  Repository
	clock func() time.Time
}

func NewLog(repo Repository) *Log {
	return &Log{repo: repo, clock: time.Now}
}

// WithClock replaces the time source; tests use it for deterministic timestamps.
func (l *Log) WithClock(clock func() time.Time) *Log {
	l.clock = clock
	return l
}

// Build creates an entry without recording it. The lifecycle engine builds the
// entry first so the durable store can write it together with the call.
func (l *Log) Build(callNumber, action, actor, remarks string) (calls.HistoryEntry, error) {
	if callNumber == "" {
		return calls.HistoryEntry{}, ErrCallNumberRequired
	}
	return calls.HistoryEntry{
		ID:         uuid.NewString(),
		CallNumber: callNumber,
		Timestamp:  l.clock().UTC(),
		Action:     action,
		Actor:      actor,
		Remarks:    remarks,
	}, nil
}

// Record appends a previously built entry.
func (l *Log) Record(ctx context.Context, e calls.HistoryEntry) error {
	if l.repo == nil {
		return ErrNotConfigured
	}
	if e.CallNumber == "" {
		return ErrCallNumberRequired
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock().UTC()
	}
	return l.repo.Append(ctx, e)
}

// Append builds and records an entry in one step.
func (l *Log) Append(ctx context.Context, callNumber, action, actor, remarks string) (calls.HistoryEntry, error) {
	e, err := l.Build(callNumber, action, actor, remarks)
	if err != nil {
		return calls.HistoryEntry{}, err
	}
	if err := l.Record(ctx, e); err != nil {
		return calls.HistoryEntry{}, err
	}
	return e, nil
}

// History returns the entries of one call, oldest first. An unknown call yields an empty slice.
func (l *Log) History(ctx context.Context, callNumber string) ([]calls.HistoryEntry, error) {
	if l.repo == nil {
		return nil, ErrNotConfigured
	}
	entries, err := l.repo.List(ctx, callNumber)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []calls.HistoryEntry{}
	}
	return entries, nil
}

// Load replaces the stored trail when the repository supports rehydration.
func (l *Log) Load(ctx context.Context, entries []calls.HistoryEntry) error {
	ld, ok := l.repo.(Loader)
	if !ok {
		return nil
	}
	return ld.Load(ctx, entries)
}
