package main

import (
	"consentdesk/internal/auth"
	"consentdesk/internal/config"
	"consentdesk/internal/consent"
	"consentdesk/internal/httpapi"
	"consentdesk/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type apiDeps struct {
	Cfg      config.Config
	Auth     *auth.Manager
	Redis    *redis.Client
	Handlers httpapi.Handlers
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, deps apiDeps) {
	h := deps.Handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Token exchange for the upstream identity provider.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.Auth))
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			tid, _ := auth.TenantID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "tenant_id": tid, "role": role})
		})

		// DOCUMENT routes
		docs := v1.Group("/documents")
		docs.Use(rbac.RequireTenant())
		{
			// Authoring: teachers/staff draft and publish documents.
			authors := rbac.RequireAnyRole(rbac.RoleTeacher, rbac.RoleStaff, rbac.RoleAdmin)
			docs.POST("", authors, h.CreateDocument)
			docs.POST("/:document_id/publish", authors, h.PublishDocument)

			// Signing: every authenticated tenant user may attempt; the
			// eligibility guard decides. The burst cap sheds term-start load.
			docs.POST("/:document_id/sign",
				consent.RequireSignCapacity(deps.Redis, deps.Cfg.Signing.BurstLimit, deps.Cfg.Signing.BurstTTL),
				h.SignDocument)

			// Reads
			docs.GET("", h.ListDocuments)
			docs.GET("/:document_id", h.GetDocument)
			docs.GET("/:document_id/signatures", authors, h.ListSignatures)

			// ADMIN operations: cancel and manual closure.
			admins := rbac.RequireAnyRole(rbac.RoleAdmin)
			docs.POST("/:document_id/cancel", admins, h.CancelDocument)
			docs.POST("/:document_id/close", admins, h.CloseDocument)
		}

		// Receipt lookup by verification token.
		receipts := v1.Group("/receipts")
		receipts.Use(rbac.RequireTenant())
		{
			receipts.GET("/:token", h.GetReceipt)
		}
	}
}
