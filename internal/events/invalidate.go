package events

import (
	"context"

	wstypes "sells-service/internal/domain/websocket"
)

// Flusher drops cached responses.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Invalidator flushes a response cache whenever metrics go stale. Every other
// event is ignored.
type Invalidator struct {
	cache Flusher
}

func NewInvalidator(cache Flusher) *Invalidator {
	return &Invalidator{cache: cache}
}

func (i *Invalidator) Publish(ctx context.Context, ev *wstypes.Event) error {
	if ev.Message == nil || ev.Message.Type != wstypes.EventTypeMetricsStale {
		return nil
	}
	return i.cache.Flush(ctx)
}
