package events

import (
	"context"
	"errors"
	"testing"

	wstypes "sells-service/internal/domain/websocket"

	"go.uber.org/zap"
)

type recorder struct {
	got []*wstypes.Event
	err error
}

func (r *recorder) Publish(_ context.Context, ev *wstypes.Event) error {
	r.got = append(r.got, ev)
	return r.err
}

type countingFlusher struct{ n int }

func (f *countingFlusher) Flush(context.Context) error {
	f.n++
	return nil
}

func TestMultiReachesEveryPublisher(t *testing.T) {
	failing := &recorder{err: errors.New("queue full")}
	ok := &recorder{}
	ev := wstypes.NewEvent(wstypes.ChannelLeads, wstypes.EventTypeLeadUpdated, nil)

	err := Multi{failing, ok}.Publish(context.Background(), ev)
	if err == nil {
		t.Error("expected the first error")
	}
	if len(ok.got) != 1 {
		t.Error("second publisher skipped after a failure")
	}
}

func TestEmitSwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("down")}
	Emit(context.Background(), r, zap.NewNop(),
		MetricsStale("visit_status"),
		wstypes.NewEvent(wstypes.ChannelVisits, wstypes.EventTypeVisitUpdated, nil),
	)
	if len(r.got) != 2 {
		t.Errorf("published %d events, want 2", len(r.got))
	}

	Emit(context.Background(), nil, zap.NewNop(), MetricsStale("noop"))
}

func TestInvalidatorFlushesOnlyOnStaleMetrics(t *testing.T) {
	f := &countingFlusher{}
	inv := NewInvalidator(f)

	_ = inv.Publish(context.Background(), wstypes.NewEvent(wstypes.ChannelLeads, wstypes.EventTypeLeadCreated, nil))
	if f.n != 0 {
		t.Fatal("flushed on a lead event")
	}
	_ = inv.Publish(context.Background(), MetricsStale("lead_created"))
	if f.n != 1 {
		t.Errorf("flushes = %d, want 1", f.n)
	}
}
