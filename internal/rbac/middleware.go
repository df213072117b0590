package rbac

import (
	"net/http"

	"inspection-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireOffice admits staff callers: the identity must carry an office code
// and a staff role.
func RequireOffice() gin.HandlerFunc {
	return requireScope(func(id auth.Identity) (int, string) {
		switch {
		case id.Office == "":
			return http.StatusUnauthorized, "office required"
		case !IsStaff(id.Role):
			return http.StatusForbidden, "staff role required"
		}
		return 0, ""
	})
}

// RequireVendor admits vendor callers: the identity must carry a vendor id.
func RequireVendor() gin.HandlerFunc {
	return requireScope(func(id auth.Identity) (int, string) {
		if id.VendorID == "" {
			return http.StatusUnauthorized, "vendor_id required"
		}
		return 0, ""
	})
}

func requireScope(check func(auth.Identity) (int, string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if status, msg := check(id); status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Next()
	}
}

// RequireAnyRole admits callers holding one of allowed. super_admin always
// passes. With no roles listed any visible role passes; ops_operator is hidden
// and only passes where it is listed by name.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	set := make(roleSet, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !set.permits(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

type roleSet map[string]struct{}

func (s roleSet) permits(role string) bool {
	if IsSuperAdmin(role) {
		return true
	}
	_, listed := s[role]
	if listed || IsHiddenRole(role) {
		return listed
	}
	return len(s) == 0
}
