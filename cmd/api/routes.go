package main

import (
	"net/http"

	"inspection-platform/internal/auth"
	"inspection-platform/internal/httpapi"
	"inspection-platform/internal/metrics"
	"inspection-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Development token issuance; the handler refuses unless DevTokens is set.
	r.POST("/v1/auth/token", h.IssueToken)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			id, _ := auth.IdentityFrom(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "office": id.Office, "vendor_id": id.VendorID, "role": id.Role})
		})

		// Read models: every staff role.
		staff := v1.Group("")
		staff.Use(httpapi.RequireOfficeAndAnyRole(rbac.RoleViewer, rbac.RoleVerifier, rbac.RoleAdmin)...)
		{
			staff.GET("/calls", h.ListCalls)
			staff.GET("/calls/:id", h.GetCall)
			staff.GET("/calls/:id/history", h.GetHistory)
			staff.GET("/kpis", h.GetKpis)
			staff.GET("/offices", h.ListOffices)
			staff.GET("/meta/display", h.GetDisplayMetadata)
			staff.GET("/reports/offices", h.OfficeReport)
			staff.GET("/reports/rectification", h.RectificationReport)
		}

		// Transitions: verifiers of the owning office, or admins.
		transitions := v1.Group("/calls")
		transitions.Use(httpapi.RequireOfficeAndAnyRole(rbac.RoleVerifier, rbac.RoleAdmin)...)
		{
			transitions.POST("/:id/verify", h.Verify)
			transitions.POST("/:id/return", h.Return)
			transitions.POST("/:id/reroute", h.Reroute)
		}

		// Vendor events.
		vendor := v1.Group("/vendor")
		vendor.Use(httpapi.RequireVendorRole()...)
		{
			vendor.POST("/calls/:id/resubmit", h.Resubmit)
		}

		// ADMIN routes
		// Hidden ops_operator may trigger a reload; it is explicitly allowed here.
		admin := v1.Group("/admin")
		admin.Use(httpapi.RequireOfficeAndAnyRole(rbac.RoleAdmin, rbac.RoleOpsOperator)...)
		{
			admin.POST("/refresh", h.Refresh)
		}
	}
}
