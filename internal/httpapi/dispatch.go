package httpapi

import (
	"net/http"
	"time"

	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/routing"
	"hvac-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

type overrideRequest struct {
	ConnectTo string    `json:"connect_to"`
	ExpiresAt time.Time `json:"expires_at"`
	Metadata  string    `json:"metadata,omitempty"`
}

func (h Handlers) GetOverride(c *gin.Context) {
	if h.Overrides == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	o, found, err := h.Overrides.Active(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, err, "override lookup failed")
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no active override"})
		return
	}
	c.JSON(http.StatusOK, o)
}

// PutOverride forces transfers to one on-call number until expires_at.
// RBAC: owner, dispatcher or super_admin.
func (h Handlers) PutOverride(c *gin.Context) {
	if h.Overrides == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	o, err := h.Overrides.Set(c.Request.Context(), routing.Override{
		CompanyID: companyID,
		ConnectTo: req.ConnectTo,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: uid,
		Metadata:  req.Metadata,
	})
	if err != nil {
		respondError(c, err, "override update failed")
		return
	}
	logger.FromGin(c).Info("on-call override set", "company_id", companyID, "override_id", o.OverrideID, "expires_at", o.ExpiresAt)
	c.JSON(http.StatusOK, o)
}

func (h Handlers) DeleteOverride(c *gin.Context) {
	if h.Overrides == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	if err := h.Overrides.Clear(c.Request.Context(), companyID); err != nil {
		respondError(c, err, "override clear failed")
		return
	}
	c.Status(http.StatusNoContent)
}
