package auth

import (
	"net/http"
	"strings"

	"hvac-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireAccessToken verifies the bearer access token and puts the caller's Identity
// on the request context. Role checks live in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := m.Verify(raw, TokenAccess, m.now())
		if err != nil {
			logger.FromGin(c).Debug("access token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := claims.Identity()
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		// The request logger reads company_id from gin keys.
		c.Set("company_id", id.CompanyID)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
