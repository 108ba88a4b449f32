package httpapi

import (
	"net/http"
	"strconv"

	"hvac-backoffice/internal/audit"

	"github.com/gin-gonic/gin"
)

// ListAudit returns the company's audit trail for platform support.
// RBAC: support or super_admin. Audit is internal and not exposed to tenant users.
func (h Handlers) ListAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	f := audit.Filter{
		Type:      audit.EventType(c.Query("type")),
		CallID:    c.Query("call_id"),
		JobID:     c.Query("job_id"),
		PaymentID: c.Query("payment_id"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}
	evs, err := h.Audit.List(c.Request.Context(), companyID, f)
	if err != nil {
		respondError(c, err, "audit lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}
