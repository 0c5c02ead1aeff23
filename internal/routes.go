package internal

import (
	"github.com/gin-gonic/gin"

	"printdock.app/api/internal/middleware"
)

// RegisterRoutes mounts the API on router. limit guards the credential and
// availability endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine, limit gin.HandlerFunc) {
	protected := func(next gin.HandlerFunc) gin.HandlerFunc {
		return middleware.Protected(h.Accounts, next)
	}

	// Auth
	router.POST("/auth/register", limit, h.Register)
	router.POST("/auth/login", limit, h.Login)
	router.GET("/auth/login", protected(h.Session))
	router.POST("/auth/logout", h.Logout)
	router.GET("/users/check", limit, h.CheckAvailability)
	router.POST("/users/check", limit, h.CheckAvailabilityAll)
	// Files
	router.POST("/upload", protected(h.Upload))
	router.GET("/upload/events", protected(h.UploadEvents))
	router.GET("/files/recent", protected(h.RecentFiles))
	router.DELETE("/files/delete", protected(h.DeleteFile))
	// Ops
	router.GET("/metrics", middleware.MetricsHandler(h.Config.MetricsPassword))
	router.GET("/healthz", h.Health)
}
