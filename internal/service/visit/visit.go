// internal/service/visit/visit.go
package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/broker"
	"sells-service/internal/domain/visit"
	wstypes "sells-service/internal/domain/websocket"
	"sells-service/internal/events"
	xerrors "sells-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, v *visit.Visit) error
	FindByUUID(ctx context.Context, uuid string) (*visit.Visit, error)
	FindActiveByPhone(ctx context.Context, phone string) (*visit.Visit, error)
	List(ctx context.Context, filters *visit.ListFilters) ([]visit.Visit, int64, error)
	Update(ctx context.Context, v *visit.Visit) error
}

type BrokerFinder interface {
	FindByID(ctx context.Context, id int64) (*broker.Broker, error)
}

type VisitService struct {
	visitRepo  Repository
	brokerRepo BrokerFinder
	publisher  events.Publisher
	logger     *zap.Logger

	now func() time.Time
}

func NewVisitService(visitRepo Repository, brokerRepo BrokerFinder, publisher events.Publisher, logger *zap.Logger) *VisitService {
	return &VisitService{
		visitRepo:  visitRepo,
		brokerRepo: brokerRepo,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// ListVisits retrieves a page of visits
func (s *VisitService) ListVisits(ctx context.Context, filters *visit.ListFilters) (*visit.ListResponse, error) {
	if filters.Status != "" && !visit.Status(filters.Status).IsValid() {
		return nil, xerrors.Invalid("status", fmt.Sprintf("unknown visit status %q", filters.Status))
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	visits, total, err := s.visitRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	for i := range visits {
		withLabel(&visits[i])
	}

	pages := 0
	if total > 0 {
		pages = int((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	}

	return &visit.ListResponse{
		Visits:     visits,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: pages,
	}, nil
}

// GetVisit retrieves a visit with its assigned broker
func (s *VisitService) GetVisit(ctx context.Context, id string) (*visit.Detail, error) {
	v, err := s.visitRepo.FindByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	withLabel(v)

	detail := &visit.Detail{Visit: *v}
	if v.BrokerID == nil {
		return detail, nil
	}

	b, err := s.brokerRepo.FindByID(ctx, *v.BrokerID)
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		s.logger.Warn("visit references missing broker", zap.String("visit_uuid", id), zap.Int64("broker_id", *v.BrokerID))
	case err != nil:
		return nil, fmt.Errorf("failed to load broker: %w", err)
	default:
		detail.Broker = &visit.BrokerSummary{ID: b.ID, Name: b.Name, Phone: b.Phone, Status: string(b.Status)}
	}

	return detail, nil
}

// CreateVisit schedules a new pending visit
func (s *VisitService) CreateVisit(ctx context.Context, req *visit.CreateVisitRequest) (*visit.Visit, error) {
	if strings.TrimSpace(req.LeadPhone) == "" {
		return nil, xerrors.Invalid("lead_phone", "is required")
	}
	if req.ScheduledAt.IsZero() {
		return nil, xerrors.Invalid("scheduled_at", "is required")
	}
	if err := s.checkBroker(ctx, req.BrokerID); err != nil {
		return nil, err
	}

	v := &visit.Visit{
		UUID:            uuid.NewString(),
		LeadID:          req.LeadID,
		LeadName:        strings.TrimSpace(req.LeadName),
		LeadPhone:       strings.TrimSpace(req.LeadPhone),
		BrokerID:        req.BrokerID,
		PropertyTitle:   req.PropertyTitle,
		PropertyAddress: req.PropertyAddress,
		PropertyType:    req.PropertyType,
		ScheduledAt:     req.ScheduledAt,
		Status:          visit.StatusPending,
		Notes:           req.Notes,
	}

	if err := s.visitRepo.Create(ctx, v); err != nil {
		s.logger.Error("failed to create visit", zap.Error(err))
		return nil, err
	}
	withLabel(v)

	s.logger.Info("visit created", zap.String("visit_uuid", v.UUID), zap.Time("scheduled_at", v.ScheduledAt))
	s.emit(ctx, v, true)

	return v, nil
}

// UpdateVisit applies a partial update. Status changes follow the visit
// lifecycle and a feedback score is only accepted on a completed visit.
func (s *VisitService) UpdateVisit(ctx context.Context, id string, req *visit.UpdateVisitRequest) (*visit.Visit, error) {
	if req.Empty() {
		return nil, xerrors.Invalid("body", "no fields to update")
	}

	v, err := s.visitRepo.FindByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := v.Status
	now := s.now()

	if req.Status != nil {
		next := *req.Status
		if !next.IsValid() {
			return nil, xerrors.Invalid("status", fmt.Sprintf("unknown visit status %q", next))
		}
		if !v.Status.CanTransition(next) {
			return nil, xerrors.Invalid("status", fmt.Sprintf("cannot move visit from %s to %s", v.Status, next))
		}
		v.Status = next
	}

	if req.FeedbackScore != nil {
		score := *req.FeedbackScore
		if score < visit.MinFeedbackScore || score > visit.MaxFeedbackScore {
			return nil, xerrors.Invalid("feedback_score", fmt.Sprintf("must be between %d and %d", visit.MinFeedbackScore, visit.MaxFeedbackScore))
		}
		if v.Status != visit.StatusCompleted {
			return nil, xerrors.Invalid("feedback_score", "only a completed visit can be scored")
		}
		v.FeedbackScore = &score
		v.FeedbackAt = &now
	}

	if req.BrokerID != nil {
		if *req.BrokerID == 0 {
			v.BrokerID = nil
		} else {
			if err := s.checkBroker(ctx, req.BrokerID); err != nil {
				return nil, err
			}
			v.BrokerID = req.BrokerID
		}
	}

	if req.LeadConfirmed != nil {
		v.LeadConfirmed = *req.LeadConfirmed
		v.LeadConfirmedAt = stamp(v.LeadConfirmed, v.LeadConfirmedAt, now)
	}
	if req.BrokerConfirmed != nil {
		v.BrokerConfirmed = *req.BrokerConfirmed
		v.BrokerConfirmedAt = stamp(v.BrokerConfirmed, v.BrokerConfirmedAt, now)
	}
	if req.ConfirmationSent != nil {
		v.ConfirmationSent = *req.ConfirmationSent
	}
	if req.FeedbackRequested != nil {
		v.FeedbackRequested = *req.FeedbackRequested
	}
	if req.Notes != nil {
		v.Notes = *req.Notes
	}

	if err := s.visitRepo.Update(ctx, v); err != nil {
		s.logger.Error("failed to update visit", zap.String("visit_uuid", id), zap.Error(err))
		return nil, err
	}
	withLabel(v)

	s.logger.Info("visit updated",
		zap.String("visit_uuid", v.UUID),
		zap.String("from_status", string(previous)),
		zap.String("status", string(v.Status)),
	)
	s.emit(ctx, v, previous != v.Status)

	return v, nil
}

// ActiveForPhone returns the lead's open visit, if any.
func (s *VisitService) ActiveForPhone(ctx context.Context, phone string) (*visit.Visit, error) {
	return s.visitRepo.FindActiveByPhone(ctx, phone)
}

// RecordLeadReply confirms or cancels a visit from the lead's answer to the
// confirmation request.
func (s *VisitService) RecordLeadReply(ctx context.Context, v *visit.Visit, confirmed bool) error {
	now := s.now()
	if confirmed {
		if !v.Status.CanTransition(visit.StatusConfirmed) {
			return xerrors.Invalid("status", fmt.Sprintf("cannot confirm a %s visit", v.Status))
		}
		v.Status = visit.StatusConfirmed
		v.LeadConfirmed = true
		v.LeadConfirmedAt = &now
	} else {
		if !v.Status.CanTransition(visit.StatusCancelled) {
			return xerrors.Invalid("status", fmt.Sprintf("cannot cancel a %s visit", v.Status))
		}
		v.Status = visit.StatusCancelled
	}

	if err := s.visitRepo.Update(ctx, v); err != nil {
		return err
	}
	withLabel(v)
	s.emit(ctx, v, true)
	return nil
}

// RecordFeedback completes a visit with the lead's score.
func (s *VisitService) RecordFeedback(ctx context.Context, v *visit.Visit, score int) error {
	if score < visit.MinFeedbackScore || score > visit.MaxFeedbackScore {
		return xerrors.Invalid("feedback_score", fmt.Sprintf("must be between %d and %d", visit.MinFeedbackScore, visit.MaxFeedbackScore))
	}
	if !v.Status.CanTransition(visit.StatusCompleted) {
		return xerrors.Invalid("status", fmt.Sprintf("cannot complete a %s visit", v.Status))
	}

	now := s.now()
	v.Status = visit.StatusCompleted
	v.FeedbackScore = &score
	v.FeedbackAt = &now

	if err := s.visitRepo.Update(ctx, v); err != nil {
		return err
	}
	withLabel(v)
	s.emit(ctx, v, true)
	return nil
}

func (s *VisitService) checkBroker(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.brokerRepo.FindByID(ctx, *id)
	if errors.Is(err, xerrors.ErrNotFound) {
		return xerrors.Invalid("broker_id", fmt.Sprintf("broker %d does not exist", *id))
	}
	if err != nil {
		return fmt.Errorf("failed to load broker: %w", err)
	}
	return nil
}

func (s *VisitService) emit(ctx context.Context, v *visit.Visit, metricsChanged bool) {
	evs := []*wstypes.Event{wstypes.NewEvent(wstypes.ChannelVisits, wstypes.EventTypeVisitUpdated, wstypes.VisitEventData{
		VisitUUID:     v.UUID,
		Status:        string(v.Status),
		BrokerID:      v.BrokerID,
		FeedbackScore: v.FeedbackScore,
	})}
	if metricsChanged {
		evs = append(evs, events.MetricsStale("visit_status"))
	}
	events.Emit(ctx, s.publisher, s.logger, evs...)
}

// stamp keeps an existing timestamp while the flag stays set and clears it
// when the flag is cleared.
func stamp(flag bool, current *time.Time, now time.Time) *time.Time {
	if !flag {
		return nil
	}
	if current != nil {
		return current
	}
	return &now
}

func withLabel(v *visit.Visit) {
	v.StatusLabel = analytics.VisitStatusLabel(string(v.Status))
}
