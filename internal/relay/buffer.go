// internal/relay/buffer.go
package relay

import (
	"context"
	"strings"
	"sync"
	"time"
)

type batch struct {
	first Inbound
	texts []string
	gen   int
	timer *time.Timer
}

// Debouncer joins messages a sender types in quick succession. Every new
// message restarts the sender's timer; when it fires the batch is handed to
// flush as a single Inbound.
type Debouncer struct {
	delay time.Duration
	flush func(Inbound)

	mu      sync.Mutex
	pending map[string]*batch
	closed  bool
	wg      sync.WaitGroup
}

func NewDebouncer(delay time.Duration, flush func(Inbound)) *Debouncer {
	return &Debouncer{
		delay:   delay,
		flush:   flush,
		pending: make(map[string]*batch),
	}
}

// Add buffers in and returns how many messages are now waiting for its
// sender. After Close, in is flushed immediately.
func (d *Debouncer) Add(in Inbound) int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.flush(in)
		return 1
	}

	b, ok := d.pending[in.ChatID]
	if !ok {
		b = &batch{first: in}
		d.pending[in.ChatID] = b
		d.wg.Add(1)
	} else {
		b.timer.Stop()
	}
	b.texts = append(b.texts, in.Text)
	b.gen++
	gen := b.gen
	b.timer = time.AfterFunc(d.delay, func() { d.fire(in.ChatID, gen) })
	n := len(b.texts)
	d.mu.Unlock()

	return n
}

func (d *Debouncer) fire(chatID string, gen int) {
	d.mu.Lock()
	b, ok := d.pending[chatID]
	// a newer message rescheduled this batch
	if !ok || b.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, chatID)
	d.mu.Unlock()

	defer d.wg.Done()
	d.flush(b.merged())
}

// Pending reports how many senders have buffered messages.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close flushes every buffered batch now and waits for running flushes.
// It gives up waiting when ctx ends; flushes still running are left to
// finish on their own.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	batches := make([]*batch, 0, len(d.pending))
	for id, b := range d.pending {
		b.timer.Stop()
		batches = append(batches, b)
		delete(d.pending, id)
	}
	d.mu.Unlock()

	for _, b := range batches {
		go func(in Inbound) {
			defer d.wg.Done()
			d.flush(in)
		}(b.merged())
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *batch) merged() Inbound {
	in := b.first
	in.Text = strings.Join(b.texts, " ")
	in.Count = len(b.texts)
	return in
}
