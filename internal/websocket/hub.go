// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "sells-service/internal/domain/websocket"

	"go.uber.org/zap"
)

// Hub fans dashboard events out to connected clients.
type Hub struct {
	// Registered clients by client ID
	clients map[string]*Client
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *wstypes.Event

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	done   chan struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]*Client),
		Register:        make(chan *Client),
		unregister:      make(chan *Client, 16),
		broadcast:       make(chan *wstypes.Event, 256),
		handlerRegistry: NewHandlerRegistry(),
		done:            make(chan struct{}),
		logger:          logger,
	}
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.broadcast:
			h.Broadcast(ev)
		}
	}
}

// Publish queues ev for delivery. It never blocks: when the queue is full
// the event is dropped and ErrQueueFull returned.
func (h *Hub) Publish(ctx context.Context, ev *wstypes.Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("client_id", client.id),
		zap.String("remote_addr", client.remoteAddr),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"client_id": client.id,
		"channels":  client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	client.Close()

	h.logger.Info("websocket client disconnected",
		zap.String("client_id", client.id),
		zap.Int("total", len(h.clients)),
	)
}

// Broadcast delivers ev to every client subscribed to its channel.
func (h *Hub) Broadcast(ev *wstypes.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.IsSubscribed(ev.Channel) {
			client.SendMessage(ev.Message)
		}
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastSystemAlert notifies clients on the system channel.
func (h *Hub) BroadcastSystemAlert(ctx context.Context, alert *wstypes.SystemAlertData) error {
	return h.Publish(ctx, wstypes.NewEvent(wstypes.ChannelSystem, wstypes.EventTypeSystemAlert, alert))
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
			"reason": "server shutting down",
		}))
		client.Close()
		delete(h.clients, id)
	}
}

// Attach registers client unless the hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}
