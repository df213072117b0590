package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"inspection-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(id auth.Identity, chain ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}}
	handlers = append(handlers, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	code := serve(auth.Identity{UserID: "u", Office: "HQ", Role: RoleSuperAdmin}, RequireOffice(), RequireAnyRole(RoleAdmin))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_HiddenRoleDeniedUnlessAllowed(t *testing.T) {
	code := serve(auth.Identity{UserID: "u", Office: "HQ", Role: RoleOpsOperator}, RequireOffice(), RequireAnyRole(RoleAdmin))
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	code = serve(auth.Identity{UserID: "u", Office: "HQ", Role: RoleOpsOperator}, RequireOffice(), RequireAnyRole(RoleAdmin, RoleOpsOperator))
	if code != http.StatusOK {
		t.Fatalf("expected 200 when explicitly allowed, got %d", code)
	}
}

func TestRequireOffice(t *testing.T) {
	code := serve(auth.Identity{UserID: "u", VendorID: "V-1", Role: RoleVerifier}, RequireOffice(), RequireAnyRole(RoleVerifier))
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireVendor(t *testing.T) {
	if code := serve(auth.Identity{UserID: "u", VendorID: "V-1", Role: RoleVendor}, RequireVendor(), RequireAnyRole(RoleVendor)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(auth.Identity{UserID: "u", Office: "WRIO", Role: RoleVerifier}, RequireVendor(), RequireAnyRole(RoleVendor)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCanActOnOffice(t *testing.T) {
	cases := []struct {
		role, user, call string
		want             bool
	}{
		{RoleVerifier, "WRIO", "WRIO", true},
		{RoleVerifier, "WRIO", "NRIO", false},
		{RoleVerifier, "WRIO", "wrio", true},
		{RoleVerifier, "", "", false},
		{RoleAdmin, "HQ", "NRIO", true},
		{RoleViewer, "WRIO", "WRIO", false},
		{RoleVendor, "", "WRIO", false},
	}
	for _, tc := range cases {
		if got := CanActOnOffice(tc.role, tc.user, tc.call); got != tc.want {
			t.Fatalf("CanActOnOffice(%s, %s, %s) = %v, want %v", tc.role, tc.user, tc.call, got, tc.want)
		}
	}
}

func TestRequireOffice_RejectsVendorRoleWithOffice(t *testing.T) {
	code := serve(auth.Identity{UserID: "u", Office: "WRIO", Role: RoleVendor}, RequireOffice(), RequireAnyRole())
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_EmptyListAdmitsVisibleRolesOnly(t *testing.T) {
	if code := serve(auth.Identity{UserID: "u", Office: "WRIO", Role: RoleViewer}, RequireAnyRole()); code != http.StatusOK {
		t.Fatalf("expected 200 for viewer, got %d", code)
	}
	if code := serve(auth.Identity{UserID: "u", Office: "HQ", Role: RoleOpsOperator}, RequireAnyRole()); code != http.StatusForbidden {
		t.Fatalf("expected 403 for hidden role, got %d", code)
	}
}
