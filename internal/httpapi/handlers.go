package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"inspection-platform/internal/auth"
	"inspection-platform/internal/calls"
	"inspection-platform/internal/lifecycle"
	"inspection-platform/internal/rbac"
	"inspection-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call the engine, return JSON. The engine
// re-validates every payload; nothing here is a trust boundary for call state.
type Handlers struct {
	Auth    *auth.Manager
	Engine  *lifecycle.Engine
	Reports *reporting.Service

	// DevTokens enables POST /v1/auth/token. Never set in production.
	DevTokens bool
}

type callView struct {
	calls.Call
	Bucket  calls.Bucket  `json:"bucket"`
	Display StatusDisplay `json:"display"`
}

func viewOf(c calls.Call) callView {
	return callView{Call: c, Bucket: c.Bucket(), Display: DisplayFor(c.Status)}
}

func viewsOf(list []calls.Call) []callView {
	out := make([]callView, 0, len(list))
	for _, c := range list {
		out = append(out, viewOf(c))
	}
	return out
}

// actorContext attaches the caller to the engine context so history entries record who acted.
func actorContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if uid, err := auth.UserID(ctx); err == nil {
		ctx = lifecycle.WithActor(ctx, uid)
	}
	return ctx
}

// --- Auth ---

type tokenRequest struct {
	UserID   string `json:"user_id"`
	Office   string `json:"office"`
	VendorID string `json:"vendor_id"`
	Role     string `json:"role"`
}

// IssueToken issues a JWT token pair.
//
// NOTE: development-only. Real deployments obtain tokens from the identity provider.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil || !h.DevTokens {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{
		UserID:   req.UserID,
		Office:   req.Office,
		VendorID: req.VendorID,
		Role:     req.Role,
	})
	if err != nil {
		// IssuePair only fails on missing or mixed scope.
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Reads ---

func (h Handlers) GetCall(c *gin.Context) {
	call, _, err := h.Engine.GetCall(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(call))
}

// ListCalls filters by status, rio and bucket. Without filters it returns every call.
func (h Handlers) ListCalls(c *gin.Context) {
	status := calls.Status(strings.TrimSpace(c.Query("status")))
	rio := calls.NormalizeOfficeCode(c.Query("rio"))
	bucket := calls.Bucket(strings.TrimSpace(c.Query("bucket")))

	if status != "" && !status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if bucket != "" && !bucket.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown bucket"})
		return
	}

	var list []calls.Call
	switch {
	case status != "":
		list = h.Engine.QueryByStatus(status)
	case rio != "":
		list = h.Engine.QueryByOffice(rio)
	default:
		s := h.Engine.Snapshot()
		list = append(append(append(list, s.Pending...), s.Verified...), s.Disposed...)
	}

	out := make([]calls.Call, 0, len(list))
	for _, call := range list {
		if rio != "" && call.RIO != rio {
			continue
		}
		if bucket != "" && call.Bucket() != bucket {
			continue
		}
		out = append(out, call)
	}
	c.JSON(http.StatusOK, gin.H{"calls": viewsOf(out), "count": len(out)})
}

func (h Handlers) GetHistory(c *gin.Context) {
	call, _, err := h.Engine.GetCall(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	entries, err := h.Engine.History(c.Request.Context(), call.CallNumber)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_number": call.CallNumber, "entries": entries})
}

func (h Handlers) GetKpis(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Kpis())
}

func (h Handlers) ListOffices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"offices": h.Engine.Offices()})
}

func (h Handlers) GetDisplayMetadata(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": displayTable(), "flagged_fields": flaggedFieldTable()})
}

// --- Transitions ---

type verifyRequest struct {
	Remarks string `json:"remarks"`
}

type returnRequest struct {
	Remarks       string               `json:"remarks"`
	FlaggedFields []calls.FlaggedField `json:"flagged_fields"`
}

type rerouteRequest struct {
	TargetOffice string `json:"target_office"`
	Remarks      string `json:"remarks"`
}

type resubmitRequest struct {
	Remarks string `json:"remarks"`
}

// officeGuard admits staff whose office owns the call, or whose role spans offices.
func officeGuard(c *gin.Context) lifecycle.Guard {
	id, _ := auth.IdentityFrom(c.Request.Context())
	return func(call calls.Call) error {
		if !rbac.CanActOnOffice(id.Role, id.Office, call.RIO) {
			return calls.Forbidden("call %s belongs to another office", call.CallNumber)
		}
		return nil
	}
}

// vendorGuard admits only the vendor named on the call. Foreign calls read as
// unknown so one vendor cannot discover another vendor's call ids.
func vendorGuard(c *gin.Context) lifecycle.Guard {
	vendorID, _ := auth.VendorID(c.Request.Context())
	identifier := c.Param("id")
	return func(call calls.Call) error {
		if call.Details.VendorID == "" || call.Details.VendorID != vendorID {
			return calls.NotFound(identifier)
		}
		return nil
	}
}

// authorizeOffice loads the call and rejects early when the caller's office does
// not own it. The engine repeats the check under the call lock.
// It writes the response and returns false when the request must stop.
func (h Handlers) authorizeOffice(c *gin.Context) (calls.Call, lifecycle.Guard, bool) {
	call, _, err := h.Engine.GetCall(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return calls.Call{}, nil, false
	}
	guard := officeGuard(c)
	if err := guard(call); err != nil {
		abortWithError(c, err)
		return calls.Call{}, nil, false
	}
	return call, guard, true
}

func (h Handlers) Verify(c *gin.Context) {
	var req verifyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	call, guard, ok := h.authorizeOffice(c)
	if !ok {
		return
	}
	updated, err := h.Engine.VerifyAndAccept(actorContext(c), call.ID, req.Remarks, guard)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(updated))
}

func (h Handlers) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	call, guard, ok := h.authorizeOffice(c)
	if !ok {
		return
	}
	updated, err := h.Engine.ReturnForRectification(actorContext(c), call.ID, req.Remarks, req.FlaggedFields, guard)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(updated))
}

func (h Handlers) Reroute(c *gin.Context) {
	var req rerouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	call, guard, ok := h.authorizeOffice(c)
	if !ok {
		return
	}
	updated, err := h.Engine.RerouteToOffice(actorContext(c), call.ID, req.TargetOffice, req.Remarks, guard)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(updated))
}

// Resubmit records a vendor resubmission. Vendors may only resubmit their own calls.
func (h Handlers) Resubmit(c *gin.Context) {
	var req resubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	call, _, err := h.Engine.GetCall(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	guard := vendorGuard(c)
	if err := guard(call); err != nil {
		abortWithError(c, err)
		return
	}
	updated, err := h.Engine.RecordResubmission(actorContext(c), call.ID, req.Remarks, guard)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(updated))
}

// --- Reports & admin ---

func (h Handlers) OfficeReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	req := reporting.WorkloadRequest{Office: c.Query("office")}
	for key, dst := range map[string]*time.Time{"from": &req.Range.From, "to": &req.Range.To} {
		if v := c.Query(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be RFC3339"})
				return
			}
			*dst = t
		}
	}
	rows, err := h.Reports.OfficeWorkload(c.Request.Context(), req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"offices": rows})
}

func (h Handlers) RectificationReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	out, err := h.Reports.Rectification(c.Request.Context(), c.Query("office"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Refresh reloads the working set from the data source. RBAC: admin.
func (h Handlers) Refresh(c *gin.Context) {
	if err := h.Engine.Refresh(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": h.Engine.Kpis()})
}

// Convenience middleware bundles.

func RequireOfficeAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireOffice(), rbac.RequireAnyRole(roles...)}
}

func RequireVendorRole() []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireVendor(), rbac.RequireAnyRole(rbac.RoleVendor)}
}
