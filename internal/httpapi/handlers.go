package httpapi

import (
	"errors"
	"net/http"
	"time"

	"hvac-backoffice/internal/audit"
	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/availability"
	"hvac-backoffice/internal/booking"
	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/holdback"
	"hvac-backoffice/internal/qa"
	"hvac-backoffice/internal/rbac"
	"hvac-backoffice/internal/reporting"
	"hvac-backoffice/internal/routing"
	"hvac-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth         *auth.Manager
	Availability *availability.Service
	Calls        *calls.Service
	Bookings     *booking.Service
	QA           *qa.Service
	Holdback     *holdback.Service
	Overrides    *routing.AdminOverrideEngine
	Reports      *reporting.Service
	Audit        *audit.Service

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Auth ---

type loginRequest struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// Login issues a token pair without checking credentials. It is mounted only outside
// production; production tokens come from the identity provider or backofficectl.
// Only company staff roles are issuable: platform roles are granted out of band.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.CompanyID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, company_id, role required"})
		return
	}
	if !rbac.IsCompanyRole(req.Role) {
		logger.FromGin(c).Warn("login refused for non-company role", "role", req.Role, "user_id", req.UserID)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not issuable"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), auth.Identity{UserID: req.UserID, CompanyID: req.CompanyID, Role: req.Role})
	if err != nil {
		logger.FromGin(c).Error("token issuance failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// LoginDisabled answers the login route in production.
func LoginDisabled(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "login is handled by the identity provider"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh trades a refresh token for a new pair carrying the same identity.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(h.now(), req.RefreshToken)
	if err != nil {
		logger.FromGin(c).Debug("refresh rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Me echoes the identity carried by the access token.
func (h Handlers) Me(c *gin.Context) {
	id, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}
	c.JSON(http.StatusOK, id)
}

// --- Availability ---

func (h Handlers) GetAvailability(c *gin.Context) {
	if h.Availability == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "availability not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	date := c.Param("date")
	if date == "today" {
		date = h.Availability.Today()
	}
	windows, err := h.Availability.GetAvailability(c.Request.Context(), companyID, date)
	if err != nil {
		respondError(c, err, "availability lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "windows": windows})
}

// --- Calls ---

func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	rec, err := h.Calls.Get(c.Request.Context(), companyID, c.Param("call_id"))
	if err != nil {
		respondError(c, err, "call lookup failed")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) GetAppointment(c *gin.Context) {
	if h.Bookings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "booking not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	appt, err := h.Bookings.Get(c.Request.Context(), companyID, c.Param("appointment_id"))
	if err != nil {
		respondError(c, err, "appointment lookup failed")
		return
	}
	c.JSON(http.StatusOK, appt)
}

func companyFrom(c *gin.Context) (string, bool) {
	cid, err := auth.CompanyID(c.Request.Context())
	if err != nil || cid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "company_id required"})
		return "", false
	}
	return cid, true
}

var (
	invalidErrs = []error{
		availability.ErrInvalidArgument,
		calls.ErrInvalidArgument,
		booking.ErrValidationFailed,
		qa.ErrInvalidArgument,
		holdback.ErrInvalidArgument,
		routing.ErrInvalidOverride,
		reporting.ErrInvalidRequest,
		audit.ErrInvalidEvent,
	}
	notFoundErrs = []error{
		availability.ErrNotFound,
		availability.ErrWindowNotFound,
		calls.ErrNotFound,
		booking.ErrNotFound,
		qa.ErrNotFound,
		holdback.ErrNotFound,
	}
	conflictErrs = []error{
		availability.ErrWindowFull,
		booking.ErrSlotUnavailable,
		holdback.ErrAlreadyExists,
	}
)

// respondError maps domain errors to status codes: 400 invalid, 404 missing,
// 409 conflict or blocked. Anything else is logged and hidden behind msg.
func respondError(c *gin.Context, err error, msg string) {
	if be, ok := qa.AsBlocked(err); ok {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "blocked", "reasons": be.Reasons})
		return
	}
	switch {
	case isAny(err, invalidErrs):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case isAny(err, notFoundErrs):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case isAny(err, conflictErrs):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error(msg, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// Convenience middleware bundles.

func RequireCompanyAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireCompany(), rbac.RequireAnyRole(roles...)}
}
