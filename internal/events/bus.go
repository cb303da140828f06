// internal/events/bus.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	wstypes "sells-service/internal/domain/websocket"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel carrying dashboard events.
const Channel = "sells:events"

// Publisher delivers a dashboard event to whoever is listening.
type Publisher interface {
	Publish(ctx context.Context, ev *wstypes.Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, *wstypes.Event) error { return nil }

// Multi fans an event out to several publishers and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev *wstypes.Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RedisBus moves events between processes over Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, ev *wstypes.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe forwards every event received on Channel to sink until ctx is
// cancelled. Malformed payloads are logged and skipped.
func (b *RedisBus) Subscribe(ctx context.Context, sink func(*wstypes.Event)) error {
	sub := b.client.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev wstypes.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.Message == nil {
				b.logger.Warn("dropping malformed event", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			sink(&ev)
		}
	}
}

// Emit publishes each event, logging failures instead of returning them.
// Live updates are best effort and never fail the operation that caused them.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, evs ...*wstypes.Event) {
	if p == nil {
		return
	}
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			logger.Warn("failed to publish event",
				zap.String("channel", string(ev.Channel)),
				zap.String("type", string(ev.Message.Type)),
				zap.Error(err),
			)
		}
	}
}

// MetricsStale tells dashboards their counters are out of date.
func MetricsStale(reason string) *wstypes.Event {
	return wstypes.NewEvent(wstypes.ChannelMetrics, wstypes.EventTypeMetricsStale, map[string]string{"reason": reason})
}
