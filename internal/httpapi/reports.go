package httpapi

import (
	"net/http"
	"time"

	"hvac-backoffice/internal/reporting"

	"github.com/gin-gonic/gin"
)

const defaultReportWindow = 30 * 24 * time.Hour

func (h Handlers) CallsReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	r, ok := h.reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), companyID, r)
	if err != nil {
		respondError(c, err, "calls report failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) HoldbackReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	r, ok := h.reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.HoldbackSummary(c.Request.Context(), companyID, r, c.Query("currency"))
	if err != nil {
		respondError(c, err, "holdback report failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

// reportRange reads RFC 3339 from/to query params, defaulting to the last 30 days.
func (h Handlers) reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	r := reporting.TimeRange{To: h.now().UTC()}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		r.To = t
	}
	r.From = r.To.Add(-defaultReportWindow)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		r.From = t
	}
	return r, true
}
