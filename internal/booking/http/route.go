package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc, limit gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	// Role and ownership checks happen in the service.
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", limit, h.Create)
		group.POST("/:id/:action", h.Decide)
		group.DELETE("/:id", h.Cancel)
	}
}
