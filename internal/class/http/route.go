package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/classes")

	// === Public Routes ===
	group.GET("", h.List)

	// === Authenticated Routes ===
	// Role checks happen in the service.
	authGroup := group.Group("")
	authGroup.Use(authMiddleware)
	{
		authGroup.POST("", h.Create)
		authGroup.DELETE("/:id", h.Delete)
	}
}
