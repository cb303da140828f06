// internal/relay/handler.go
package relay

import (
	"net/http"
	"time"

	"sells-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	processor *Processor
	stats     Counters
	startedAt time.Time
	logger    *zap.Logger
}

func NewHandler(processor *Processor, stats Counters, logger *zap.Logger) *Handler {
	return &Handler{
		processor: processor,
		stats:     stats,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the relay endpoints on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/v1/whatsapp/webhook", h.Webhook)
	r.GET("/api/v1/whatsapp/webhook", h.Verify)
	r.GET("/health", h.Health)
	r.GET("/stats", h.Stats)
}

// Webhook receives WAHA events.
func (h *Handler) Webhook(c *gin.Context) {
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	res, err := h.processor.Handle(c.Request.Context(), &payload)
	if err != nil {
		status := response.StatusFor(err)
		if status < http.StatusInternalServerError {
			status = http.StatusInternalServerError
		}
		h.logger.Error("webhook processing failed", zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

// Verify answers WAHA's reachability check.
func (h *Handler) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"stats":          h.snapshot(c),
	})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c))
}

func (h *Handler) snapshot(c *gin.Context) gin.H {
	out := gin.H{"server_started_at": h.startedAt.Format(time.RFC3339)}
	if h.stats == nil {
		return out
	}

	counts, err := h.stats.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Warn("failed to read stats", zap.Error(err))
		out["stats_error"] = err.Error()
		return out
	}
	for name, n := range counts {
		out[name] = n
	}
	return out
}
