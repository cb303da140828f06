// internal/app/router.go
package app

import (
	"net/http"

	analyticsHandler "sells-service/internal/handlers/analytics"
	brokerHandler "sells-service/internal/handlers/broker"
	leadHandler "sells-service/internal/handlers/lead"
	visitHandler "sells-service/internal/handlers/visit"
	wsHandler "sells-service/internal/handlers/websocket"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	LeadHandler      *leadHandler.LeadHandler
	LandingHandler   gin.HandlerFunc
	VisitHandler     *visitHandler.VisitHandler
	BrokerHandler    *brokerHandler.BrokerHandler
	AnalyticsHandler *analyticsHandler.AnalyticsHandler
	WSHandler        *wsHandler.WebSocketHandler
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)
	api.GET("/ws/stats", h.WSHandler.GetStats)

	// ==================== Landing Page ====================
	r.POST("/api/landing-lead", h.LandingHandler)

	// ==================== Dashboard ====================
	dashboard := api.Group("/dashboard")
	h.AnalyticsHandler.RegisterRoutes(dashboard)
	h.LeadHandler.RegisterRoutes(dashboard)
	h.VisitHandler.RegisterRoutes(dashboard)
	h.BrokerHandler.RegisterRoutes(dashboard)
}
