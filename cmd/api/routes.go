package main

import (
	"net/http"

	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/httpapi"
	"hvac-backoffice/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, app *application, authManager *auth.Manager) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public). Twilio signatures are checked when
	// TWILIO_WEBHOOK_BASE_URL and TWILIO_AUTH_TOKEN are both set.
	hooks := r.Group("/webhooks/twilio")
	{
		hooks.POST("/voice", app.Webhooks.HandleVoice)
		hooks.POST("/status", app.Webhooks.HandleStatus)
	}

	h := app.Handlers
	h.Auth = authManager

	authGroup := r.Group("/v1/auth")
	{
		if app.DevLogin {
			authGroup.POST("/login", h.Login)
		} else {
			authGroup.POST("/login", httpapi.LoginDisabled)
		}
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager))
	v1.Use(rbac.RequireCompany())
	{
		v1.GET("/me", h.Me)

		office := httpapi.RequireCompanyAndAnyRole(rbac.RoleOwner, rbac.RoleDispatcher)
		v1.GET("/availability/:date", append(office, h.GetAvailability)...)
		v1.GET("/calls/:call_id", append(office, h.GetCall)...)

		field := httpapi.RequireCompanyAndAnyRole(rbac.RoleOwner, rbac.RoleDispatcher, rbac.RoleTechnician)
		v1.GET("/appointments/:appointment_id", append(field, h.GetAppointment)...)

		// QA capture happens in the field; closure is read by the office.
		jobs := v1.Group("/jobs/:job_id")
		jobs.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleDispatcher, rbac.RoleTechnician))
		{
			jobs.GET("/qa", h.GetQAGate)
			jobs.PUT("/qa", h.PutQAGate)
			jobs.PUT("/warranty", h.PutWarranty)
			jobs.PUT("/inspection", h.PutInspection)
			jobs.GET("/closure", h.GetClosure)
		}

		// Money moves only for owner/finance (super_admin bypasses).
		money := httpapi.RequireCompanyAndAnyRole(rbac.RoleOwner, rbac.RoleFinance)
		v1.POST("/jobs/:job_id/payment", append(money, h.CreatePayment)...)
		v1.GET("/payments/:payment_id", append(money, h.GetPayment)...)
		v1.POST("/payments/:payment_id/release", append(money, h.ReleasePayment)...)

		reports := v1.Group("/reports")
		reports.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleFinance))
		{
			reports.GET("/calls", h.CallsReport)
			reports.GET("/holdback", h.HoldbackReport)
		}

		// Internal audit trail: platform support only (hidden support role, super_admin).
		v1.GET("/audit", rbac.RequireAnyRole(rbac.RoleSupport), h.ListAudit)

		// On-call override. Hidden support role is intentionally NOT included.
		dispatch := v1.Group("/dispatch")
		dispatch.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleDispatcher))
		{
			dispatch.GET("/override", h.GetOverride)
			dispatch.PUT("/override", h.PutOverride)
			dispatch.DELETE("/override", h.DeleteOverride)
		}
	}
}
