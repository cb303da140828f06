// internal/websocket/handler.go
package websocket

import (
	"context"
	"sync"

	wstypes "sells-service/internal/domain/websocket"
)

// MessageHandler answers client requests for one area of the dashboard
type MessageHandler interface {
	// HandleMessage processes messages for this handler's domain
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error

	// SupportedEvents returns the list of event types this handler supports
	SupportedEvents() []wstypes.EventType
}

// HandlerRegistry maps client event types to their handler
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[wstypes.EventType]MessageHandler),
	}
}

// Register registers a handler for its supported events. A later handler
// replaces an earlier one for the same event.
func (r *HandlerRegistry) Register(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eventType := range handler.SupportedEvents() {
		r.handlers[eventType] = handler
	}
}

// GetHandler returns the handler for a given event type
func (r *HandlerRegistry) GetHandler(eventType wstypes.EventType) (MessageHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, exists := r.handlers[eventType]
	return handler, exists
}
