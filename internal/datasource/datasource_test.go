package datasource

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"inspection-platform/internal/calls"
)

func TestFixtureSource_PartitionsByStatus(t *testing.T) {
	snap, err := NewFixtureSource("testdata/calls.yaml").FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Pending) != 2 || len(snap.Verified) != 1 || len(snap.Disposed) != 1 {
		t.Fatalf("unexpected partition: %d/%d/%d", len(snap.Pending), len(snap.Verified), len(snap.Disposed))
	}
	if len(snap.Offices) != 3 || snap.Offices[1].Code != "WRIO" {
		t.Fatalf("unexpected offices: %+v", snap.Offices)
	}
	if len(snap.History) != 1 || snap.History[0].CallNumber != "IC-2026-0002" {
		t.Fatalf("unexpected history: %+v", snap.History)
	}
	var returned calls.Call
	for _, c := range snap.Pending {
		if c.Status == calls.StatusReturned {
			returned = c
		}
	}
	if len(returned.FlaggedFields) != 2 || returned.FlaggedFields[0] != calls.FieldPODetails {
		t.Fatalf("flagged fields not decoded: %+v", returned.FlaggedFields)
	}
	// submission_count omitted in the fixture defaults to 1
	if snap.Disposed[0].SubmissionCount != 1 {
		t.Fatalf("expected default submission count, got %d", snap.Disposed[0].SubmissionCount)
	}
}

func TestFixtureSource_MissingPath(t *testing.T) {
	if _, err := NewFixtureSource("").FetchAll(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewFixtureSource("testdata/nope.yaml").FetchAll(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDecodeFixture_RejectsUnknownStatusAndFields(t *testing.T) {
	_, err := DecodeFixture(strings.NewReader("calls:\n  - {id: x, call_number: X, status: lost, rio: NRIO}\n"))
	if !errors.Is(err, calls.ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if _, err := DecodeFixture(strings.NewReader("colls: []\n")); err == nil {
		t.Fatalf("expected error for unknown top-level key")
	}
}

func TestFixtureRoundTripKeepsCalls(t *testing.T) {
	snap, err := NewFixtureSource("testdata/calls.yaml").FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeFixture(&buf, snap); err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := DecodeFixture(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(again.Pending)+len(again.Verified)+len(again.Disposed) != 4 {
		t.Fatalf("calls lost in export")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ch := Change{Call: calls.Call{ID: "c-1", CallNumber: "IC-1", FlaggedFields: []calls.FlaggedField{calls.FieldQuantity}}}
	if err := s.SaveTransition(context.Background(), ch); err != nil {
		t.Fatalf("save: %v", err)
	}
	ch.Call.FlaggedFields[0] = calls.FieldMADetails
	if got := s.Changes(); len(got) != 1 || got[0].Call.FlaggedFields[0] != calls.FieldQuantity {
		t.Fatalf("store must keep its own copy: %+v", got)
	}

	boom := errors.New("disk full")
	s.FailWith(boom)
	if err := s.SaveTransition(context.Background(), ch); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if len(s.Changes()) != 1 {
		t.Fatalf("failed write must not be recorded")
	}
}
