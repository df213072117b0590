package history

import (
	"context"
	"testing"
	"time"

	"inspection-platform/internal/calls"
)

func TestLog_AppendRequiresCallNumber(t *testing.T) {
	log := NewLog(NewMemoryRepo())
	if _, err := log.Append(context.Background(), "", "Call Verified & Registered", "u", ""); err != ErrCallNumberRequired {
		t.Fatalf("expected ErrCallNumberRequired, got %v", err)
	}
}

func TestLog_HistoryIsOrderedAndRestartable(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Unix(1700000000, 0).UTC()
	tick := 0
	log := NewLog(repo).WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	ctx := context.Background()

	actions := []string{"Returned for Rectification", "Resubmitted by Vendor", "Call Verified & Registered"}
	for _, a := range actions {
		if _, err := log.Append(ctx, "CALL-1", a, "verifier-1", "r"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := log.Append(ctx, "CALL-2", "Re-routed to CRIO", "verifier-1", "x"); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := log.History(ctx, "CALL-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(first))
	}
	for i, a := range actions {
		if first[i].Action != a {
			t.Fatalf("entry %d: expected %q, got %q", i, a, first[i].Action)
		}
		if i > 0 && first[i].Timestamp.Before(first[i-1].Timestamp) {
			t.Fatalf("entries out of order")
		}
	}
	second, _ := log.History(ctx, "CALL-1")
	if len(second) != len(first) || second[0].ID != first[0].ID {
		t.Fatalf("repeated reads must return the same data")
	}
	second[0].Action = "tampered"
	third, _ := log.History(ctx, "CALL-1")
	if third[0].Action == "tampered" {
		t.Fatalf("history exposes internal storage")
	}
}

func TestLog_UnknownCallReturnsEmpty(t *testing.T) {
	log := NewLog(NewMemoryRepo())
	entries, err := log.History(context.Background(), "CALL-404")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", entries)
	}
}

func TestLog_BuildDoesNotRecord(t *testing.T) {
	repo := NewMemoryRepo()
	log := NewLog(repo)
	e, err := log.Build("CALL-1", "Call Verified & Registered", "u", "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp on built entry")
	}
	if repo.Count("CALL-1") != 0 {
		t.Fatalf("build must not record")
	}
	if err := log.Record(context.Background(), e); err != nil {
		t.Fatalf("record: %v", err)
	}
	if repo.Count("CALL-1") != 1 {
		t.Fatalf("expected 1 recorded entry")
	}
}

func TestLog_LoadRehydratesInTimestampOrder(t *testing.T) {
	repo := NewMemoryRepo()
	log := NewLog(repo)
	t0 := time.Unix(1700000000, 0).UTC()
	err := log.Load(context.Background(), []calls.HistoryEntry{
		{ID: "b", CallNumber: "CALL-1", Timestamp: t0.Add(time.Hour), Action: "second"},
		{ID: "a", CallNumber: "CALL-1", Timestamp: t0, Action: "first"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, _ := log.History(context.Background(), "CALL-1")
	if len(got) != 2 || got[0].Action != "first" || got[1].Action != "second" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
