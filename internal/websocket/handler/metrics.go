// internal/websocket/handler/metrics.go
package handler

import (
	"context"
	"fmt"

	"sells-service/internal/analytics"
	wstypes "sells-service/internal/domain/websocket"
	ws "sells-service/internal/websocket"
)

type MetricsSource interface {
	Metrics(ctx context.Context) (analytics.Metrics, error)
}

// MetricsHandler answers metrics:get with the current dashboard counters.
type MetricsHandler struct {
	source MetricsSource
}

func NewMetricsHandler(source MetricsSource) *MetricsHandler {
	return &MetricsHandler{source: source}
}

// SupportedEvents returns events this handler supports
func (h *MetricsHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeMetricsGet}
}

// HandleMessage processes metrics requests
func (h *MetricsHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeMetricsGet {
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}

	m, err := h.source.Metrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metrics: %w", err)
	}

	reply := wstypes.NewMessage(wstypes.EventTypeMetricsSnapshot, m)
	if msg.ID != "" {
		reply.Metadata = map[string]interface{}{"request_id": msg.ID}
	}
	client.SendMessage(reply)
	return nil
}
