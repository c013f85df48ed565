package main

import (
	"trivehive/internal/httpapi"
	"trivehive/internal/rbac"
	"trivehive/internal/vapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, webhook *vapi.WebhookHandler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Vapi server events (public by design; Vapi does not authenticate with
	// our tokens). An optional shared secret is enforced inside the handler.
	r.POST("/api/webhooks/vapi", webhook.HandleWebhook)

	// token issuance is public; everything else under /v1 requires a token
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireAccount())
	{
		v1.GET("/calls", h.ListCalls)
		v1.GET("/calls/:id", h.GetCall)

		v1.GET("/reports/calls-summary", h.CallsSummary)

		v1.GET("/settings", h.GetSettings)
		v1.PUT("/settings/profile", h.UpdateProfile)
		v1.PUT("/settings/assistant", h.UpdateAssistant)

		// ADMIN routes: attribution repair for orphan calls.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/calls/orphans", h.ListOrphanCalls)
			admin.POST("/calls/:vapi_call_id/reattach", h.ReattachCall)
		}
	}
}
