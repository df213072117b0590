package datasource

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"inspection-platform/internal/calls"
)

func TestPostgres_FetchAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, code, name, location FROM regional_offices").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "location"}).
			AddRow("1", "NRIO", "Northern", "New Delhi").
			AddRow("2", "WRIO", "Western", "Mumbai"))
	mock.ExpectQuery("SELECT id, call_number, product, stage, status, rio").
		WillReturnRows(sqlmock.NewRows([]string{"id", "call_number", "product", "stage", "status", "rio", "submission_count",
			"return_reason", "flagged_fields", "details", "version", "created_at", "updated_at"}).
			AddRow("c-1", "IC-1", "erc", "final", "returned", "WRIO", 1, "bad PO", []byte(`["poDetails"]`), []byte(`{"vendor_name":"Shree"}`), 3, now, now).
			AddRow("c-2", "IC-2", "grsp", "process", "scheduled", "NRIO", 2, "", []byte(`[]`), []byte(`{}`), 0, now, now))
	mock.ExpectQuery("SELECT id, call_number, ts, action, actor, remarks").
		WillReturnRows(sqlmock.NewRows([]string{"id", "call_number", "ts", "action", "actor", "remarks"}).
			AddRow("h-1", "IC-1", now, "Returned for Rectification", "v1", "bad PO"))
	mock.ExpectCommit()

	snap, err := NewPostgres(db).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Pending) != 1 || len(snap.Verified) != 1 || len(snap.Disposed) != 0 {
		t.Fatalf("unexpected partition: %+v", snap)
	}
	c := snap.Pending[0]
	if c.Version != 3 || c.Details.VendorName != "Shree" || len(c.FlaggedFields) != 1 || c.FlaggedFields[0] != calls.FieldPODetails {
		t.Fatalf("call not decoded: %+v", c)
	}
	if snap.Verified[0].FlaggedFields != nil {
		t.Fatalf("empty flagged set should decode to nil")
	}
	if len(snap.Offices) != 2 || len(snap.History) != 1 {
		t.Fatalf("unexpected offices/history: %+v %+v", snap.Offices, snap.History)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func change() Change {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return Change{
		Call: calls.Call{
			ID: "c-1", CallNumber: "IC-1", Status: calls.StatusVerifiedRegistered, RIO: "WRIO",
			SubmissionCount: 1, Version: 4, UpdatedAt: now,
		},
		ExpectedVersion: 3,
		Entry: calls.HistoryEntry{
			ID: "h-2", CallNumber: "IC-1", Timestamp: now, Action: "Call Verified & Registered", Actor: "v1",
		},
	}
}

func TestPostgres_SaveTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ch := change()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE calls").
		WithArgs("verified_registered", "WRIO", 1, "", []byte(`[]`), int64(4), ch.Call.UpdatedAt, "c-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO call_history").
		WithArgs("h-2", "IC-1", ch.Entry.Timestamp, "Call Verified & Registered", "v1", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := NewPostgres(db).SaveTransition(context.Background(), ch); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgres_SaveTransitionVersionMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE calls").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := NewPostgres(db).SaveTransition(context.Background(), change()); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgres_SaveTransitionRollsBackOnHistoryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE calls").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO call_history").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := NewPostgres(db).SaveTransition(context.Background(), change()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMigrate_AppliesPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_version")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectExec("CREATE OR REPLACE FUNCTION call_history_reject_change").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE schema_version").WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadMigrationsOrdered(t *testing.T) {
	ms, err := loadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ms) < 2 || ms[0].Version != 1 || ms[1].Version != 2 {
		t.Fatalf("unexpected migrations: %+v", ms)
	}
}

func TestPostgres_SeedCountsNewCallsOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	snap := Snapshot{
		Offices: []calls.RegionalOffice{{ID: "1", Code: "WRIO", Name: "Western", Location: "Mumbai"}},
		Pending: []calls.Call{
			{ID: "c-1", CallNumber: "IC-1", Status: calls.StatusFreshSubmission, RIO: "WRIO", SubmissionCount: 1},
			{ID: "c-2", CallNumber: "IC-2", Status: calls.StatusResubmission, RIO: "WRIO", SubmissionCount: 2},
		},
		History: []calls.HistoryEntry{{ID: "h-1", CallNumber: "IC-2", Action: "Resubmitted by Vendor"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO regional_offices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO calls").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO calls").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO call_history").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewPostgres(db).Seed(context.Background(), snap)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted call, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
