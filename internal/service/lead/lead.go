// internal/service/lead/lead.go
package lead

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/followup"
	"sells-service/internal/domain/lead"
	"sells-service/internal/domain/visit"
	wstypes "sells-service/internal/domain/websocket"
	"sells-service/internal/events"
	xerrors "sells-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Repository interface {
	FindByID(ctx context.Context, id int64) (*lead.Lead, error)
	List(ctx context.Context, filters *lead.ListFilters) ([]lead.Lead, int64, error)
	Update(ctx context.Context, l *lead.Lead) error
	UpsertLanding(ctx context.Context, l *lead.Lead) (bool, error)
}

type VisitLister interface {
	ListByLead(ctx context.Context, leadID int64, phone string) ([]visit.Visit, error)
}

type MessageLister interface {
	ListByConversationIDs(ctx context.Context, ids []string) ([]conversation.Message, error)
}

type FollowupScheduler interface {
	Upsert(ctx context.Context, f *followup.Followup) error
}

type LeadService struct {
	leadRepo     Repository
	visitRepo    VisitLister
	messageRepo  MessageLister
	followupRepo FollowupScheduler
	publisher    events.Publisher
	session      string
	logger       *zap.Logger

	now func() time.Time
}

func NewLeadService(
	leadRepo Repository,
	visitRepo VisitLister,
	messageRepo MessageLister,
	followupRepo FollowupScheduler,
	publisher events.Publisher,
	session string,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leadRepo:     leadRepo,
		visitRepo:    visitRepo,
		messageRepo:  messageRepo,
		followupRepo: followupRepo,
		publisher:    publisher,
		session:      session,
		logger:       logger,
		now:          time.Now,
	}
}

// ListLeads retrieves a page of leads
func (s *LeadService) ListLeads(ctx context.Context, filters *lead.ListFilters) (*lead.ListResponse, error) {
	if filters.Status != "" && !lead.Status(filters.Status).IsValid() {
		return nil, xerrors.Invalid("status", fmt.Sprintf("unknown lead status %q", filters.Status))
	}

	// Set defaults
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	leads, total, err := s.leadRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	for i := range leads {
		withLabel(&leads[i])
	}

	return &lead.ListResponse{
		Leads:      leads,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages(total, filters.PageSize),
	}, nil
}

// GetLead retrieves a lead with its visits
func (s *LeadService) GetLead(ctx context.Context, id int64) (*lead.Detail, error) {
	l, err := s.leadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	withLabel(l)

	visits, err := s.visitRepo.ListByLead(ctx, l.ID, l.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead visits: %w", err)
	}
	for i := range visits {
		visits[i].StatusLabel = analytics.VisitStatusLabel(string(visits[i].Status))
	}

	return &lead.Detail{Lead: *l, Visits: visits}, nil
}

// GetConversation returns the lead's WhatsApp history, oldest first
func (s *LeadService) GetConversation(ctx context.Context, id int64) (*conversation.Thread, error) {
	l, err := s.leadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByConversationIDs(ctx, conversation.CandidateIDs(l.Phone))
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	return &conversation.Thread{LeadID: l.ID, Phone: l.Phone, Messages: messages}, nil
}

// UpdateLead applies a partial update. Status changes must follow the lead
// lifecycle.
func (s *LeadService) UpdateLead(ctx context.Context, id int64, req *lead.UpdateLeadRequest) (*lead.Lead, error) {
	if req.Empty() {
		return nil, xerrors.Invalid("body", "no fields to update")
	}

	l, err := s.leadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := l.Status
	if req.Status != nil {
		next := *req.Status
		if !next.IsValid() {
			return nil, xerrors.Invalid("status", fmt.Sprintf("unknown lead status %q", next))
		}
		if !l.Status.CanTransition(next) {
			return nil, xerrors.Invalid("status", fmt.Sprintf("cannot move lead from %s to %s", l.Status, next))
		}
		l.Status = next
		if next != lead.StatusNew && l.ContactedAt == nil {
			now := s.now()
			l.ContactedAt = &now
		}
	}
	if req.Name != nil {
		l.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		l.Email = req.Email
	}
	if req.QualificationScore != nil {
		l.QualificationScore = req.QualificationScore
	}
	if req.QualificationBudget != nil {
		l.QualificationBudget = req.QualificationBudget
	}
	if req.QualificationRegion != nil {
		l.QualificationRegion = req.QualificationRegion
	}
	if req.QualificationIntent != nil {
		l.QualificationIntent = req.QualificationIntent
	}

	if err := s.leadRepo.Update(ctx, l); err != nil {
		s.logger.Error("failed to update lead", zap.Int64("lead_id", id), zap.Error(err))
		return nil, err
	}
	withLabel(l)

	s.logger.Info("lead updated",
		zap.Int64("lead_id", l.ID),
		zap.String("from_status", string(previous)),
		zap.String("status", string(l.Status)),
	)

	evs := []*wstypes.Event{wstypes.NewEvent(wstypes.ChannelLeads, wstypes.EventTypeLeadUpdated, wstypes.LeadEventData{
		LeadID: l.ID,
		Status: string(l.Status),
	})}
	if previous != l.Status {
		evs = append(evs, events.MetricsStale("lead_status"))
	}
	events.Emit(ctx, s.publisher, s.logger, evs...)

	return l, nil
}

// RegisterLanding stores a landing-page lead and schedules its first nudge.
func (s *LeadService) RegisterLanding(ctx context.Context, req *lead.LandingLeadRequest) (*lead.LandingLeadResponse, error) {
	phone := lead.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, xerrors.Invalid("phone", "must contain digits")
	}
	title := strings.TrimSpace(req.Property.Title)
	if title == "" {
		return nil, xerrors.Invalid("property.title", "is required")
	}

	l := &lead.Lead{
		Name:          strings.TrimSpace(req.Name),
		Phone:         phone,
		Source:        SourceFromURL(req.SourceURL),
		PropertyTitle: &title,
		Preferences: lead.Preferences{
			Neighborhoods:   []string{},
			AdditionalNotes: req.Property.Description,
		},
	}
	if req.SourceURL != "" {
		l.SourceURL = &req.SourceURL
	}
	if req.Property.Link != "" {
		l.PropertyLink = &req.Property.Link
	}
	if req.Property.Area > 0 {
		l.PropertyArea = &req.Property.Area
	}
	if req.Property.Bedrooms > 0 {
		l.Preferences.Bedrooms = &req.Property.Bedrooms
	}
	if req.Property.Price > 0 {
		l.Preferences.MaxPrice = &req.Property.Price
	}
	if n := strings.TrimSpace(req.Property.Neighborhood); n != "" {
		l.Preferences.Neighborhoods = []string{n}
	}

	created, err := s.leadRepo.UpsertLanding(ctx, l)
	if err != nil {
		s.logger.Error("failed to store landing lead", zap.String("phone", phone), zap.Error(err))
		return nil, err
	}

	resp := &lead.LandingLeadResponse{LeadID: l.ID, Phone: phone}

	if l.Status == lead.StatusNew {
		chatID := phone + "@c.us"
		f := &followup.Followup{
			ConversationID: conversation.IDForChat(chatID),
			LeadID:         &l.ID,
			ChatID:         chatID,
			Session:        s.session,
			Kind:           followup.KindLanding,
			DueAt:          s.now().Add(followup.LandingDelay),
		}
		if err := s.followupRepo.Upsert(ctx, f); err != nil {
			s.logger.Error("failed to schedule landing followup", zap.Int64("lead_id", l.ID), zap.Error(err))
			return nil, err
		}
		resp.FollowupDueAt = &f.DueAt
	}

	s.logger.Info("landing lead registered",
		zap.Int64("lead_id", l.ID),
		zap.String("source", l.Source),
		zap.Bool("created", created),
	)

	evType := wstypes.EventTypeLeadUpdated
	if created {
		evType = wstypes.EventTypeLeadCreated
	}
	events.Emit(ctx, s.publisher, s.logger,
		wstypes.NewEvent(wstypes.ChannelLeads, evType, wstypes.LeadEventData{
			LeadID: l.ID,
			Phone:  phone,
			Status: string(l.Status),
			Source: l.Source,
		}),
		events.MetricsStale("landing_lead"),
	)

	return resp, nil
}

// SourceFromURL names a lead source after the host of the page it came from.
func SourceFromURL(raw string) string {
	if raw == "" {
		return "landing"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "landing"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func withLabel(l *lead.Lead) {
	l.StatusLabel = analytics.LeadStatusLabel(string(l.Status))
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
