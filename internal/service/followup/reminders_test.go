package followup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/visit"
	wstypes "sells-service/internal/domain/websocket"

	"go.uber.org/zap"
)

type fakeVisitStore struct {
	visits  []visit.Visit
	query   visit.ReminderQuery
	updated []visit.Visit
}

func (f *fakeVisitStore) ListReminderCandidates(_ context.Context, q visit.ReminderQuery) ([]visit.Visit, error) {
	f.query = q
	out := make([]visit.Visit, len(f.visits))
	copy(out, f.visits)
	return out, nil
}

func (f *fakeVisitStore) Update(_ context.Context, v *visit.Visit) error {
	f.updated = append(f.updated, *v)
	return nil
}

type recordingPublisher struct{ events []*wstypes.Event }

func (r *recordingPublisher) Publish(_ context.Context, ev *wstypes.Event) error {
	r.events = append(r.events, ev)
	return nil
}

var brt = time.FixedZone("BRT", -3*60*60)

func newReminders(store *fakeVisitStore, sender *fakeSender, msgs *fakeMessages, pub *recordingPublisher, brokerChat string, now time.Time) *ReminderService {
	s := NewReminderService(store, sender, msgs, pub, ReminderConfig{
		Session:      "default",
		BrokerChatID: brokerChat,
		Location:     brt,
	}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestReminderSweepMorningConfirmations(t *testing.T) {
	morning := time.Date(2025, 3, 12, 8, 5, 0, 0, brt)
	store := &fakeVisitStore{visits: []visit.Visit{{
		UUID: "v-1", LeadName: "Ana", LeadPhone: "5585999990000", PropertyTitle: "Apto Meireles",
		Status: visit.StatusPending, ScheduledAt: time.Date(2025, 3, 12, 15, 0, 0, 0, brt),
	}}}
	sender := &fakeSender{}
	msgs := &fakeMessages{}
	pub := &recordingPublisher{}
	s := newReminders(store, sender, msgs, pub, "5585911112222@c.us", morning)

	n, err := s.Sweep(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Sweep = %d, %v", n, err)
	}
	if !store.query.Now.Equal(morning) || !store.query.BrokerReminders || store.query.Limit != SweepBatch {
		t.Errorf("query = %+v", store.query)
	}

	lead, broker := sender.sent[0], sender.sent[1]
	if lead.chatID != "5585999990000@c.us" || !strings.Contains(lead.text, "hoje as 15:00") {
		t.Errorf("lead request = %+v", lead)
	}
	if broker.chatID != "5585911112222@c.us" || !strings.Contains(broker.text, "Ana") {
		t.Errorf("broker request = %+v", broker)
	}

	// only the lead's message joins the conversation
	if len(msgs.stored) != 1 || msgs.stored[0].ConversationID != conversation.IDForChat("5585999990000@c.us") {
		t.Errorf("stored = %+v", msgs.stored)
	}

	if len(store.updated) != 1 {
		t.Fatalf("updated = %+v", store.updated)
	}
	got := store.updated[0]
	if !got.ConfirmationSent || !got.BrokerConfirmationSent || got.FeedbackRequested {
		t.Errorf("flags = %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0].Message.Type != wstypes.EventTypeVisitUpdated {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestReminderSweepFeedbackRequest(t *testing.T) {
	later := time.Date(2025, 3, 12, 17, 30, 0, 0, brt)
	store := &fakeVisitStore{visits: []visit.Visit{{
		UUID: "v-2", LeadPhone: "5585999990000", Status: visit.StatusConfirmed,
		ConfirmationSent: true, LeadConfirmed: true, BrokerConfirmationSent: true,
		ScheduledAt: time.Date(2025, 3, 12, 15, 0, 0, 0, brt),
	}}}
	sender := &fakeSender{}
	msgs := &fakeMessages{}
	s := newReminders(store, sender, msgs, &recordingPublisher{}, "", later)

	n, err := s.Sweep(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Sweep = %d, %v", n, err)
	}
	if store.query.BrokerReminders {
		t.Error("broker reminders requested without a broker chat")
	}
	if sender.sent[0].text != visit.FeedbackRequestMessage {
		t.Errorf("text = %q", sender.sent[0].text)
	}
	if !store.updated[0].FeedbackRequested {
		t.Errorf("updated = %+v", store.updated[0])
	}
	if msgs.stored[0].Metadata["type"] != string(visit.ReminderFeedback) {
		t.Errorf("metadata = %+v", msgs.stored[0].Metadata)
	}
}

func TestReminderSweepSkipsBrokerWithoutChat(t *testing.T) {
	morning := time.Date(2025, 3, 12, 8, 5, 0, 0, brt)
	store := &fakeVisitStore{visits: []visit.Visit{{
		UUID: "v-3", LeadPhone: "5585999990000", Status: visit.StatusPending,
		ScheduledAt: time.Date(2025, 3, 12, 15, 0, 0, 0, brt),
	}}}
	sender := &fakeSender{}
	s := newReminders(store, sender, &fakeMessages{}, &recordingPublisher{}, "", morning)

	n, err := s.Sweep(context.Background())
	if err != nil || n != 1 || len(sender.sent) != 1 {
		t.Fatalf("Sweep = %d, %v, sent %+v", n, err, sender.sent)
	}
	if store.updated[0].BrokerConfirmationSent {
		t.Error("broker flag set without sending")
	}
}

func TestReminderSweepKeepsFlagsOnSendFailure(t *testing.T) {
	morning := time.Date(2025, 3, 12, 8, 5, 0, 0, brt)
	store := &fakeVisitStore{visits: []visit.Visit{{
		UUID: "v-4", LeadPhone: "5585999990000", Status: visit.StatusPending,
		ScheduledAt: time.Date(2025, 3, 12, 15, 0, 0, 0, brt),
	}}}
	pub := &recordingPublisher{}
	s := newReminders(store, &fakeSender{err: errors.New("waha down")}, &fakeMessages{}, pub, "", morning)

	n, err := s.Sweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Sweep = %d, %v", n, err)
	}
	if len(store.updated) != 0 || len(pub.events) != 0 {
		t.Errorf("updated = %+v, events = %d", store.updated, len(pub.events))
	}
}
