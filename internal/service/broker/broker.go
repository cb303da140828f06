// internal/service/broker/broker.go
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/broker"
	"sells-service/internal/domain/lead"
	wstypes "sells-service/internal/domain/websocket"
	"sells-service/internal/events"
	xerrors "sells-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// RecentVisitLimit is how many visits a broker detail shows.
const RecentVisitLimit = 10

type Repository interface {
	Create(ctx context.Context, b *broker.Broker) error
	FindByID(ctx context.Context, id int64) (*broker.Broker, error)
	ExistsByPhone(ctx context.Context, phone string, excludeID int64) (bool, error)
	List(ctx context.Context, filters *broker.ListFilters) ([]broker.Broker, int64, error)
	Update(ctx context.Context, b *broker.Broker) error
	Deactivate(ctx context.Context, id int64) error
}

type VisitLister interface {
	ListRecentByBroker(ctx context.Context, brokerID int64, limit int) ([]broker.RecentVisit, error)
}

type RankingSource interface {
	BrokerRows(ctx context.Context, start, end time.Time) ([]analytics.BrokerRow, error)
}

type BrokerService struct {
	brokerRepo Repository
	visitRepo  VisitLister
	ranking    RankingSource
	publisher  events.Publisher
	loc        *time.Location
	logger     *zap.Logger

	now func() time.Time
}

func NewBrokerService(
	brokerRepo Repository,
	visitRepo VisitLister,
	ranking RankingSource,
	publisher events.Publisher,
	loc *time.Location,
	logger *zap.Logger,
) *BrokerService {
	return &BrokerService{
		brokerRepo: brokerRepo,
		visitRepo:  visitRepo,
		ranking:    ranking,
		publisher:  publisher,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// ListBrokers retrieves a page of brokers with their visit stats
func (s *BrokerService) ListBrokers(ctx context.Context, filters *broker.ListFilters) (*broker.ListResponse, error) {
	if filters.Status != "" && !broker.Status(filters.Status).IsValid() {
		return nil, xerrors.Invalid("status", fmt.Sprintf("unknown broker status %q", filters.Status))
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PerPage < 1 {
		filters.PerPage = 20
	}
	if filters.PerPage > 100 {
		filters.PerPage = 100
	}

	brokers, total, err := s.brokerRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list brokers: %w", err)
	}

	pages := 0
	if total > 0 {
		pages = int((total + int64(filters.PerPage) - 1) / int64(filters.PerPage))
	}

	return &broker.ListResponse{
		Data:    brokers,
		Total:   total,
		Page:    filters.Page,
		PerPage: filters.PerPage,
		Pages:   pages,
	}, nil
}

// CreateBroker registers a new active broker. Name and phone are required and
// the phone must not belong to another broker.
func (s *BrokerService) CreateBroker(ctx context.Context, req *broker.CreateBrokerRequest) (*broker.Broker, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, xerrors.Invalid("name", "is required")
	}
	phone := lead.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, xerrors.Invalid("phone", "is required")
	}

	exists, err := s.brokerRepo.ExistsByPhone(ctx, phone, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check broker phone: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("broker with phone %s: %w", phone, xerrors.ErrConflict)
	}

	b := &broker.Broker{
		Name:   name,
		Phone:  phone,
		Email:  optional(req.Email),
		Creci:  optional(req.Creci),
		Active: true,
	}

	if err := s.brokerRepo.Create(ctx, b); err != nil {
		s.logger.Error("failed to create broker", zap.Error(err))
		return nil, err
	}

	s.logger.Info("broker created", zap.Int64("broker_id", b.ID), zap.String("name", b.Name))
	s.emit(ctx, b, "created")

	return b, nil
}

// GetBroker retrieves a broker with stats and recent visits
func (s *BrokerService) GetBroker(ctx context.Context, id int64) (*broker.Detail, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	recent, err := s.visitRepo.ListRecentByBroker(ctx, id, RecentVisitLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load broker visits: %w", err)
	}

	return &broker.Detail{Broker: *b, RecentVisits: recent}, nil
}

// UpdateBroker applies a partial update
func (s *BrokerService) UpdateBroker(ctx context.Context, id int64, req *broker.UpdateBrokerRequest) (*broker.Broker, error) {
	if req.Empty() {
		return nil, xerrors.Invalid("body", "no fields to update")
	}

	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, xerrors.Invalid("name", "cannot be empty")
		}
		b.Name = name
	}
	if req.Phone != nil {
		phone := lead.NormalizePhone(*req.Phone)
		if phone == "" {
			return nil, xerrors.Invalid("phone", "cannot be empty")
		}
		if phone != b.Phone {
			exists, err := s.brokerRepo.ExistsByPhone(ctx, phone, b.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check broker phone: %w", err)
			}
			if exists {
				return nil, fmt.Errorf("broker with phone %s: %w", phone, xerrors.ErrConflict)
			}
		}
		b.Phone = phone
	}
	if req.Email != nil {
		b.Email = optional(*req.Email)
	}
	if req.Creci != nil {
		b.Creci = optional(*req.Creci)
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, xerrors.Invalid("status", fmt.Sprintf("unknown broker status %q", *req.Status))
		}
		b.Active = *req.Status == broker.StatusActive
	}

	if err := s.brokerRepo.Update(ctx, b); err != nil {
		s.logger.Error("failed to update broker", zap.Int64("broker_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("broker updated", zap.Int64("broker_id", b.ID))
	s.emit(ctx, b, "updated")

	return b, nil
}

// DeactivateBroker soft-deletes a broker
func (s *BrokerService) DeactivateBroker(ctx context.Context, id int64) error {
	if err := s.brokerRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("broker deactivated", zap.Int64("broker_id", id))
	s.emit(ctx, &broker.Broker{ID: id, Status: broker.StatusInactive}, "deactivated")
	return nil
}

// Ranking ranks active brokers over the period. An empty period selects 30d.
func (s *BrokerService) Ranking(ctx context.Context, rawPeriod string) (*broker.RankingResponse, error) {
	period, err := analytics.ParsePeriod(rawPeriod, analytics.Period30d)
	if err != nil {
		return nil, err
	}

	start, end := period.Window(s.now(), s.loc)
	rows, err := s.ranking.BrokerRows(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load broker ranking: %w", err)
	}

	return &broker.RankingResponse{Period: period, Data: analytics.RankBrokers(rows)}, nil
}

func (s *BrokerService) emit(ctx context.Context, b *broker.Broker, action string) {
	events.Emit(ctx, s.publisher, s.logger,
		wstypes.NewEvent(wstypes.ChannelBrokers, wstypes.EventTypeBrokerUpdated, wstypes.BrokerEventData{
			BrokerID: b.ID,
			Status:   string(b.Status),
			Action:   action,
		}),
	)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
