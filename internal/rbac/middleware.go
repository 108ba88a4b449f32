package rbac

import (
	"net/http"

	"hvac-backoffice/internal/auth"
	"hvac-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireCompany rejects requests whose identity is not bound to a company.
// Membership is carried by the signed token; there is no separate membership table.
func RequireCompany() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromContext(c.Request.Context())
		if !ok || id.CompanyID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "company_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole admits callers holding one of allowed. super_admin always passes;
// support passes only where it is listed.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, ok := auth.FromContext(c.Request.Context())
		if !ok || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if IsSuperAdmin(id.Role) {
			c.Next()
			return
		}
		if _, ok := allowedSet[id.Role]; !ok {
			logger.FromGin(c).Info("role denied", "role", id.Role, "user_id", id.UserID, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
