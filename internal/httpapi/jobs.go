package httpapi

import (
	"net/http"

	"hvac-backoffice/internal/holdback"
	"hvac-backoffice/internal/qa"

	"github.com/gin-gonic/gin"
)

// --- QA / closure ---

type gateRequest struct {
	StartupMetrics     *qa.StartupMetrics `json:"startup_metrics"`
	Photos             []qa.Photo         `json:"photos"`
	RequiredPhotoTypes []string           `json:"required_photo_types"`
}

type warrantyRequest struct {
	Registered         bool   `json:"registered"`
	RegistrationNumber string `json:"registration_number"`
}

type inspectionRequest struct {
	Required  bool `json:"required"`
	Completed bool `json:"completed"`
	Passed    bool `json:"passed"`
}

func (h Handlers) GetQAGate(c *gin.Context) {
	if h.QA == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "qa not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	g, ev, err := h.QA.GetGate(c.Request.Context(), companyID, c.Param("job_id"))
	if err != nil {
		respondError(c, err, "qa lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"qa_gate": g, "qa_evaluation": ev})
}

func (h Handlers) PutQAGate(c *gin.Context) {
	if h.QA == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "qa not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	var req gateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	g := qa.Gate{
		CompanyID:          companyID,
		JobID:              c.Param("job_id"),
		StartupMetrics:     req.StartupMetrics,
		Photos:             req.Photos,
		RequiredPhotoTypes: req.RequiredPhotoTypes,
	}
	ev, err := h.QA.RecordGate(c.Request.Context(), g)
	if err != nil {
		respondError(c, err, "qa update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"qa_evaluation": ev})
}

func (h Handlers) PutWarranty(c *gin.Context) {
	if h.QA == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "qa not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	var req warrantyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := h.QA.RecordWarranty(c.Request.Context(), qa.Warranty{
		CompanyID:          companyID,
		JobID:              c.Param("job_id"),
		Registered:         req.Registered,
		RegistrationNumber: req.RegistrationNumber,
	})
	if err != nil {
		respondError(c, err, "warranty update failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) PutInspection(c *gin.Context) {
	if h.QA == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "qa not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	var req inspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := h.QA.RecordInspection(c.Request.Context(), qa.Inspection{
		CompanyID: companyID,
		JobID:     c.Param("job_id"),
		Required:  req.Required,
		Completed: req.Completed,
		Passed:    req.Passed,
	})
	if err != nil {
		respondError(c, err, "inspection update failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetClosure reports whether the job may be closed and, if not, why.
func (h Handlers) GetClosure(c *gin.Context) {
	if h.QA == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "qa not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	st, err := h.QA.Status(c.Request.Context(), companyID, c.Param("job_id"))
	if err != nil {
		respondError(c, err, "closure check failed")
		return
	}
	c.JSON(http.StatusOK, st)
}

// --- Holdback ---

type createPaymentRequest struct {
	SubcontractorID    string   `json:"subcontractor_id"`
	BaseAmountMinor    int64    `json:"base_amount_minor"`
	Currency           string   `json:"currency"`
	HoldbackPercentage *float64 `json:"holdback_percentage,omitempty"`
}

func (h Handlers) CreatePayment(c *gin.Context) {
	if h.Holdback == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "holdback not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Holdback.Create(c.Request.Context(), companyID, c.Param("job_id"), holdback.CreateRequest{
		SubcontractorID:    req.SubcontractorID,
		BaseAmountMinor:    req.BaseAmountMinor,
		Currency:           req.Currency,
		HoldbackPercentage: req.HoldbackPercentage,
	})
	if err != nil {
		respondError(c, err, "payment create failed")
		return
	}
	c.JSON(http.StatusCreated, paymentView(p, nil))
}

func (h Handlers) GetPayment(c *gin.Context) {
	if h.Holdback == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "holdback not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	p, hist, err := h.Holdback.Get(c.Request.Context(), companyID, c.Param("payment_id"))
	if err != nil {
		respondError(c, err, "payment lookup failed")
		return
	}
	c.JSON(http.StatusOK, paymentView(p, hist))
}

// ReleasePayment evaluates the holdback against the live closure gate.
// RBAC: owner, finance or super_admin.
func (h Handlers) ReleasePayment(c *gin.Context) {
	if h.Holdback == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "holdback not configured"})
		return
	}
	companyID, ok := companyFrom(c)
	if !ok {
		return
	}
	res, err := h.Holdback.EvaluateRelease(c.Request.Context(), companyID, c.Param("payment_id"))
	if err != nil {
		respondError(c, err, "payment release failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"released":         res.Released,
		"already_released": res.AlreadyReleased,
		"payment":          paymentView(res.Payment, nil),
	})
}

func paymentView(p holdback.Payment, hist []holdback.HistoryEntry) gin.H {
	out := gin.H{
		"id":                      p.ID,
		"job_id":                  p.JobID,
		"subcontractor_id":        p.SubcontractorID,
		"base_amount_minor":       p.BaseAmountMinor,
		"currency":                p.Currency,
		"holdback_percentage":     p.HoldbackPercentage,
		"holdback_amount_minor":   p.HoldbackAmountMinor(),
		"releasable_amount_minor": p.ReleasableAmountMinor(),
		"status":                  p.Status,
		"blocked_reasons":         p.BlockedReasons,
		"released_at":             p.ReleasedAt,
	}
	if hist != nil {
		out["history"] = hist
	}
	return out
}
