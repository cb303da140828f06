package lead

import (
	"context"
	"errors"
	"testing"
	"time"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/followup"
	"sells-service/internal/domain/lead"
	"sells-service/internal/domain/visit"
	wstypes "sells-service/internal/domain/websocket"
	xerrors "sells-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeLeads struct {
	byID    map[int64]*lead.Lead
	nextID  int64
	updated int
	filters *lead.ListFilters
}

func newFakeLeads(leads ...*lead.Lead) *fakeLeads {
	f := &fakeLeads{byID: map[int64]*lead.Lead{}, nextID: 100}
	for _, l := range leads {
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeLeads) FindByID(_ context.Context, id int64) (*lead.Lead, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeads) List(_ context.Context, filters *lead.ListFilters) ([]lead.Lead, int64, error) {
	f.filters = filters
	out := []lead.Lead{}
	for _, l := range f.byID {
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLeads) Update(_ context.Context, l *lead.Lead) error {
	if _, ok := f.byID[l.ID]; !ok {
		return xerrors.ErrNotFound
	}
	cp := *l
	f.byID[l.ID] = &cp
	f.updated++
	return nil
}

func (f *fakeLeads) UpsertLanding(_ context.Context, l *lead.Lead) (bool, error) {
	for _, existing := range f.byID {
		if existing.Phone == l.Phone {
			l.ID = existing.ID
			l.Status = existing.Status
			return false, nil
		}
	}
	f.nextID++
	l.ID = f.nextID
	l.Status = lead.StatusNew
	cp := *l
	f.byID[l.ID] = &cp
	return true, nil
}

type fakeVisits struct{ visits []visit.Visit }

func (f *fakeVisits) ListByLead(context.Context, int64, string) ([]visit.Visit, error) {
	return f.visits, nil
}

type fakeMessages struct{ ids []string }

func (f *fakeMessages) ListByConversationIDs(_ context.Context, ids []string) ([]conversation.Message, error) {
	f.ids = ids
	return []conversation.Message{{Role: conversation.RoleUser, Content: "oi"}}, nil
}

type fakeFollowups struct{ scheduled []followup.Followup }

func (f *fakeFollowups) Upsert(_ context.Context, fu *followup.Followup) error {
	f.scheduled = append(f.scheduled, *fu)
	return nil
}

type recorder struct{ events []*wstypes.Event }

func (r *recorder) Publish(_ context.Context, ev *wstypes.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func newService(leads *fakeLeads) (*LeadService, *fakeFollowups, *recorder) {
	fu := &fakeFollowups{}
	rec := &recorder{}
	s := NewLeadService(leads, &fakeVisits{}, &fakeMessages{}, fu, rec, "default", zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s, fu, rec
}

func ptr[T any](v T) *T { return &v }

func TestListLeadsDefaults(t *testing.T) {
	leads := newFakeLeads(&lead.Lead{ID: 1, Status: lead.StatusQualified})
	s, _, _ := newService(leads)

	filters := &lead.ListFilters{PageSize: 500}
	resp, err := s.ListLeads(context.Background(), filters)
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if leads.filters.Page != 1 || leads.filters.PageSize != 100 {
		t.Errorf("filters = page %d size %d, want 1/100", leads.filters.Page, leads.filters.PageSize)
	}
	if resp.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", resp.TotalPages)
	}
	if resp.Leads[0].StatusLabel != "Qualificado" {
		t.Errorf("StatusLabel = %q", resp.Leads[0].StatusLabel)
	}
}

func TestListLeadsRejectsUnknownStatus(t *testing.T) {
	s, _, _ := newService(newFakeLeads())
	_, err := s.ListLeads(context.Background(), &lead.ListFilters{Status: "archived"})
	if !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestUpdateLeadLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		from    lead.Status
		to      lead.Status
		wantErr bool
	}{
		{"forward", lead.StatusNew, lead.StatusQualified, false},
		{"skip ahead", lead.StatusNew, lead.StatusNegotiating, false},
		{"backwards", lead.StatusNegotiating, lead.StatusQualified, true},
		{"lost from open", lead.StatusVisitScheduled, lead.StatusLost, false},
		{"out of terminal", lead.StatusConverted, lead.StatusLost, true},
		{"same status", lead.StatusQualified, lead.StatusQualified, false},
		{"unknown", lead.StatusNew, lead.Status("archived"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads := newFakeLeads(&lead.Lead{ID: 1, Status: tt.from})
			s, _, _ := newService(leads)

			_, err := s.UpdateLead(context.Background(), 1, &lead.UpdateLeadRequest{Status: ptr(tt.to)})
			if tt.wantErr {
				if !errors.Is(err, xerrors.ErrInvalidInput) {
					t.Fatalf("err = %v, want invalid input", err)
				}
				if leads.updated != 0 {
					t.Error("rejected update must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateLead: %v", err)
			}
			if got := leads.byID[1].Status; got != tt.to {
				t.Errorf("stored status = %s, want %s", got, tt.to)
			}
		})
	}
}

func TestUpdateLeadSetsContactedAt(t *testing.T) {
	leads := newFakeLeads(&lead.Lead{ID: 1, Status: lead.StatusNew})
	s, _, rec := newService(leads)

	l, err := s.UpdateLead(context.Background(), 1, &lead.UpdateLeadRequest{Status: ptr(lead.StatusQualified)})
	if err != nil {
		t.Fatalf("UpdateLead: %v", err)
	}
	if l.ContactedAt == nil {
		t.Fatal("ContactedAt should be set when leaving new")
	}
	if len(rec.events) != 2 {
		t.Errorf("events = %d, want lead:updated + metrics:stale", len(rec.events))
	}
}

func TestUpdateLeadEmptyAndMissing(t *testing.T) {
	s, _, _ := newService(newFakeLeads())

	if _, err := s.UpdateLead(context.Background(), 1, &lead.UpdateLeadRequest{}); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("empty body err = %v", err)
	}
	if _, err := s.UpdateLead(context.Background(), 9, &lead.UpdateLeadRequest{Name: ptr("x")}); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("missing lead err = %v", err)
	}
}

func TestGetConversationUsesCandidateIDs(t *testing.T) {
	leads := newFakeLeads(&lead.Lead{ID: 1, Phone: "5585991234567"})
	msgs := &fakeMessages{}
	s := NewLeadService(leads, &fakeVisits{}, msgs, &fakeFollowups{}, nil, "default", zap.NewNop())

	thread, err := s.GetConversation(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(thread.Messages) != 1 {
		t.Errorf("messages = %d", len(thread.Messages))
	}
	if msgs.ids[0] != "whatsapp_5585991234567@c.us" {
		t.Errorf("first id = %q", msgs.ids[0])
	}
}

func TestRegisterLanding(t *testing.T) {
	leads := newFakeLeads()
	s, fu, rec := newService(leads)

	resp, err := s.RegisterLanding(context.Background(), &lead.LandingLeadRequest{
		Phone:     "(85) 99123-4567",
		Name:      " Joao ",
		SourceURL: "https://www.memude.com.br/aldeota",
		Property:  lead.LandingProperty{Title: "Apto Aldeota", Price: 450000, Neighborhood: "Aldeota", Bedrooms: 2},
	})
	if err != nil {
		t.Fatalf("RegisterLanding: %v", err)
	}
	if resp.Phone != "5585991234567" {
		t.Errorf("phone = %q", resp.Phone)
	}

	stored := leads.byID[resp.LeadID]
	if stored.Source != "memude.com.br" || stored.Name != "Joao" {
		t.Errorf("stored = source %q name %q", stored.Source, stored.Name)
	}
	if len(stored.Preferences.Neighborhoods) != 1 || *stored.Preferences.MaxPrice != 450000 {
		t.Errorf("preferences = %+v", stored.Preferences)
	}

	if len(fu.scheduled) != 1 {
		t.Fatalf("followups = %d, want 1", len(fu.scheduled))
	}
	got := fu.scheduled[0]
	if got.Kind != followup.KindLanding || got.ConversationID != "whatsapp_5585991234567@c.us" {
		t.Errorf("followup = %+v", got)
	}
	if want := s.now().Add(5 * time.Minute); !got.DueAt.Equal(want) || !resp.FollowupDueAt.Equal(want) {
		t.Errorf("due = %v, want %v", got.DueAt, want)
	}
	if rec.events[0].Message.Type != wstypes.EventTypeLeadCreated {
		t.Errorf("first event = %s", rec.events[0].Message.Type)
	}
}

func TestRegisterLandingSkipsFollowupForAdvancedLead(t *testing.T) {
	leads := newFakeLeads(&lead.Lead{ID: 7, Phone: "5585991234567", Status: lead.StatusNegotiating})
	s, fu, _ := newService(leads)

	resp, err := s.RegisterLanding(context.Background(), &lead.LandingLeadRequest{
		Phone:    "85991234567",
		Property: lead.LandingProperty{Title: "Casa"},
	})
	if err != nil {
		t.Fatalf("RegisterLanding: %v", err)
	}
	if resp.LeadID != 7 || resp.FollowupDueAt != nil || len(fu.scheduled) != 0 {
		t.Errorf("resp = %+v, followups = %d", resp, len(fu.scheduled))
	}
}

func TestRegisterLandingRejectsBadPhone(t *testing.T) {
	s, _, _ := newService(newFakeLeads())
	_, err := s.RegisterLanding(context.Background(), &lead.LandingLeadRequest{
		Phone:    "n/a",
		Property: lead.LandingProperty{Title: "Casa"},
	})
	if !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestSourceFromURL(t *testing.T) {
	tests := map[string]string{
		"":                               "landing",
		"not a url":                      "landing",
		"https://WWW.Example.com/x?y=1":  "example.com",
		"http://lp.memude.com.br:8080/a": "lp.memude.com.br",
	}
	for in, want := range tests {
		if got := SourceFromURL(in); got != want {
			t.Errorf("SourceFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
