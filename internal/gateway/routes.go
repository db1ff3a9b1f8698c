package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/auth"
)

// RegisterRoutes mounts the health probes at the root and the session API
// under /api.
func RegisterRoutes(router *gin.Engine, h *Handler, stream *SnapshotStream, jwtManager *auth.JWTManager) {
	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	api := router.Group("/api")
	api.GET("/health", h.Health)

	// Public routes
	api.POST("/sessions", h.CreateSession)

	// Session routes (require a token issued for :id)
	sessions := api.Group("/sessions/:id")
	sessions.Use(auth.RequireSession(jwtManager))

	sessions.GET("", h.GetSession)
	sessions.DELETE("", h.DeleteSession)
	sessions.POST("/token", h.RefreshToken)
	sessions.GET("/ws", stream.Stream)

	sessions.POST("/uploads", h.UploadBatch)
	sessions.POST("/uploads/:slot", h.UploadSlot)
	sessions.POST("/results/reload", h.ReloadResults)

	sessions.POST("/circuit-name", h.PresentName)
	sessions.DELETE("/circuit-name", h.DismissName)
	sessions.POST("/circuit-name/accept", h.AcceptName)
	sessions.POST("/circuit-name/manual", h.ManualName)
	sessions.POST("/circuit-name/submit", h.SubmitName)

	sessions.POST("/search", h.Search)
	sessions.POST("/parameters/retry", h.RetryParameters)
	sessions.PUT("/parameters/:key", h.EditParameter)
	sessions.POST("/documents", h.Generate)
	sessions.GET("/documents/:generation", h.Download)
	sessions.GET("/templates", h.Templates)
}
