package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inspection-platform/internal/auth"
	"inspection-platform/internal/config"
	"inspection-platform/internal/datasource"
	"inspection-platform/internal/httpapi"
	"inspection-platform/internal/lifecycle"
	"inspection-platform/internal/rbac"
	"inspection-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

type testServer struct {
	router *gin.Engine
	auth   *auth.Manager
	store  *datasource.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "inspection-api",
		JWTAudience:     "inspection-desk",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	store := datasource.NewMemoryStore()
	engine := lifecycle.New(lifecycle.Deps{
		Source: datasource.NewFixtureSource("../../internal/datasource/testdata/calls.yaml"),
		Store:  store,
	}, lifecycle.Options{LockWait: time.Second})
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	h := httpapi.Handlers{
		Auth:      m,
		Engine:    engine,
		Reports:   reporting.NewService(reporting.NewLiveRepo(engine)),
		DevTokens: true,
	}
	r := gin.New()
	registerRoutes(r, h, auth.RequireAccessToken(m))
	return &testServer{router: r, auth: m, store: store}
}

func (s *testServer) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	p, err := s.auth.IssuePair(time.Now(), id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return p.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

type callResp struct {
	ID              string   `json:"id"`
	CallNumber      string   `json:"call_number"`
	Status          string   `json:"status"`
	RIO             string   `json:"rio"`
	Bucket          string   `json:"bucket"`
	SubmissionCount int      `json:"submission_count"`
	ReturnReason    string   `json:"return_reason"`
	FlaggedFields   []string `json:"flagged_fields"`
	Display         struct {
		Label string `json:"label"`
	} `json:"display"`
}

type errResp struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	nrioVerifier = auth.Identity{UserID: "verifier.nrio", Office: "NRIO", Role: rbac.RoleVerifier}
	wrioVerifier = auth.Identity{UserID: "verifier.wrio", Office: "WRIO", Role: rbac.RoleVerifier}
	hqAdmin      = auth.Identity{UserID: "admin", Office: "HQ", Role: rbac.RoleAdmin}
	viewer       = auth.Identity{UserID: "viewer", Office: "NRIO", Role: rbac.RoleViewer}
	vendor200    = auth.Identity{UserID: "konkan", VendorID: "V-200", Role: rbac.RoleVendor}
	vendor100    = auth.Identity{UserID: "shree", VendorID: "V-100", Role: rbac.RoleVendor}
)

func TestHealthzIsPublic(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if len(body) != 1 || body["status"] != "ok" {
		t.Fatalf("public health check must only report status, got %v", body)
	}
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodGet, "/v1/kpis", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetCallAndNotFound(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, viewer)

	w := s.do(t, http.MethodGet, "/v1/calls/IC-2026-0002", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[callResp](t, w)
	if got.ID != "c-2" || got.Bucket != "pending_verification" || got.Display.Label == "" {
		t.Fatalf("unexpected call: %+v", got)
	}

	w = s.do(t, http.MethodGet, "/v1/calls/IC-404", tok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if e := decode[errResp](t, w); e.Error != "not_found" {
		t.Fatalf("unexpected error body: %+v", e)
	}
}

func TestListCallsFilters(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, viewer)

	w := s.do(t, http.MethodGet, "/v1/calls?rio=wrio", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decode[struct{ Count int }](t, w); body.Count != 2 {
		t.Fatalf("expected 2 WRIO calls, got %d", body.Count)
	}

	w = s.do(t, http.MethodGet, "/v1/calls?rio=WRIO&bucket=pending_verification", tok, nil)
	if body := decode[struct{ Count int }](t, w); body.Count != 1 {
		t.Fatalf("expected 1 pending WRIO call, got %d", body.Count)
	}

	if w := s.do(t, http.MethodGet, "/v1/calls?status=bogus", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestVerifyMovesCallAndRecordsActor(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, nrioVerifier)

	w := s.do(t, http.MethodPost, "/v1/calls/c-1/verify", tok, map[string]string{"remarks": "documents in order"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[callResp](t, w)
	if got.Status != "verified_registered" || got.Bucket != "verified_open" {
		t.Fatalf("unexpected call after verify: %+v", got)
	}

	w = s.do(t, http.MethodGet, "/v1/calls/c-1/history", tok, nil)
	hist := decode[struct {
		Entries []struct {
			Action string `json:"action"`
			Actor  string `json:"actor"`
		} `json:"entries"`
	}](t, w)
	if len(hist.Entries) != 1 || hist.Entries[0].Actor != "verifier.nrio" || hist.Entries[0].Action != lifecycle.ActionVerified {
		t.Fatalf("unexpected history: %+v", hist.Entries)
	}

	kpis := decode[struct {
		PendingVerification struct{ Total int } `json:"pending_verification"`
		VerifiedOpen        struct{ Total int } `json:"verified_open"`
	}](t, s.do(t, http.MethodGet, "/v1/kpis", tok, nil))
	if kpis.PendingVerification.Total != 1 || kpis.VerifiedOpen.Total != 2 {
		t.Fatalf("unexpected kpis: %+v", kpis)
	}

	// already verified
	w = s.do(t, http.MethodPost, "/v1/calls/c-1/verify", tok, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second verify, got %d", w.Code)
	}
	if e := decode[errResp](t, w); e.Error != "invalid_transition" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestVerifyOtherOfficeForbidden(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/calls/c-1/verify", s.token(t, wrioVerifier), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if e := decode[errResp](t, w); e.Error != "forbidden" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if len(s.store.Changes()) != 0 {
		t.Fatalf("forbidden request must not write")
	}
}

func TestViewerCannotTransition(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodPost, "/v1/calls/c-1/verify", s.token(t, viewer), nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestReturnValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, nrioVerifier)

	w := s.do(t, http.MethodPost, "/v1/calls/c-1/return", tok, map[string]any{"remarks": "  ", "flagged_fields": []string{"quantity"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if e := decode[errResp](t, w); e.Code != "remarks_required" {
		t.Fatalf("unexpected error: %+v", e)
	}

	w = s.do(t, http.MethodPost, "/v1/calls/c-1/return", tok, map[string]any{"remarks": "fix"})
	if e := decode[errResp](t, w); w.Code != http.StatusUnprocessableEntity || e.Code != "flagged_fields_required" {
		t.Fatalf("unexpected response %d: %+v", w.Code, e)
	}

	w = s.do(t, http.MethodPost, "/v1/calls/c-1/return", tok, map[string]any{"remarks": "fix", "flagged_fields": []string{"colour"}})
	if e := decode[errResp](t, w); w.Code != http.StatusUnprocessableEntity || e.Code != "flagged_field_unknown" {
		t.Fatalf("unexpected response %d: %+v", w.Code, e)
	}

	w = s.do(t, http.MethodPost, "/v1/calls/c-1/return", tok, map[string]any{"remarks": "Quantity mismatch", "flagged_fields": []string{"quantity", "quantity"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[callResp](t, w)
	if got.Status != "returned" || got.ReturnReason != "Quantity mismatch" || len(got.FlaggedFields) != 1 {
		t.Fatalf("unexpected call after return: %+v", got)
	}
}

func TestRerouteByAdmin(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, hqAdmin)

	w := s.do(t, http.MethodPost, "/v1/calls/c-1/reroute", tok, map[string]string{"target_office": "NRIO", "remarks": "x"})
	if e := decode[errResp](t, w); w.Code != http.StatusUnprocessableEntity || e.Code != "target_office_same" {
		t.Fatalf("unexpected response %d: %+v", w.Code, e)
	}

	w = s.do(t, http.MethodPost, "/v1/calls/c-1/reroute", tok, map[string]string{"target_office": "crio", "remarks": "closer to works"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[callResp](t, w); got.RIO != "CRIO" || got.Status != "fresh_submission" {
		t.Fatalf("unexpected call after reroute: %+v", got)
	}
}

func TestVendorResubmit(t *testing.T) {
	s := newTestServer(t)

	// another vendor's call looks like a missing one
	w := s.do(t, http.MethodPost, "/v1/vendor/calls/c-2/resubmit", s.token(t, vendor100), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign call, got %d", w.Code)
	}

	// staff tokens cannot use the vendor route
	w = s.do(t, http.MethodPost, "/v1/vendor/calls/c-2/resubmit", s.token(t, wrioVerifier), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for staff token, got %d", w.Code)
	}

	tok := s.token(t, vendor200)
	w = s.do(t, http.MethodPost, "/v1/vendor/calls/c-2/resubmit", tok, map[string]string{"remarks": "corrected PO"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[callResp](t, w)
	if got.Status != "resubmission" || got.SubmissionCount != 2 || got.ReturnReason != "" || len(got.FlaggedFields) != 0 {
		t.Fatalf("unexpected call after resubmit: %+v", got)
	}

	// no longer returned
	w = s.do(t, http.MethodPost, "/v1/vendor/calls/c-2/resubmit", tok, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestAdminRefreshDiscardsMemoryOnlyChanges(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodPost, "/v1/calls/c-1/verify", s.token(t, hqAdmin), nil); w.Code != http.StatusOK {
		t.Fatalf("verify: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/v1/admin/refresh", s.token(t, nrioVerifier), nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for verifier refresh, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/v1/admin/refresh", s.token(t, hqAdmin), nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[callResp](t, s.do(t, http.MethodGet, "/v1/calls/c-1", s.token(t, viewer), nil))
	if got.Status != "fresh_submission" {
		t.Fatalf("expected fixture state after refresh, got %s", got.Status)
	}
}

func TestReportsAndMetadata(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, viewer)

	if w := s.do(t, http.MethodGet, "/v1/reports/offices?office=WRIO", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("office report: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/v1/reports/offices?from=yesterday", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad from, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/v1/reports/rectification", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("rectification report: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/v1/meta/display", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("display metadata: %d", w.Code)
	}
	offices := decode[struct {
		Offices []struct{ Code string } `json:"offices"`
	}](t, s.do(t, http.MethodGet, "/v1/offices", tok, nil))
	if len(offices.Offices) != 3 || offices.Offices[0].Code != "CRIO" {
		t.Fatalf("unexpected offices: %+v", offices.Offices)
	}
}

func TestDevTokenIssue(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/auth/token", "", map[string]string{"user_id": "u", "office": "NRIO", "role": "viewer"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	pair := decode[auth.TokenPair](t, w)
	if w := s.do(t, http.MethodGet, "/v1/kpis", pair.AccessToken, nil); w.Code != http.StatusOK {
		t.Fatalf("issued token rejected: %d", w.Code)
	}
}
