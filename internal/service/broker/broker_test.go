package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/broker"
	xerrors "sells-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeBrokers struct {
	byID   map[int64]*broker.Broker
	nextID int64
}

func newFakeBrokers(bs ...*broker.Broker) *fakeBrokers {
	f := &fakeBrokers{byID: map[int64]*broker.Broker{}}
	for _, b := range bs {
		f.byID[b.ID] = b
		if b.ID > f.nextID {
			f.nextID = b.ID
		}
	}
	return f
}

func (f *fakeBrokers) Create(_ context.Context, b *broker.Broker) error {
	f.nextID++
	b.ID = f.nextID
	b.Status = broker.StatusOf(b.Active)
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBrokers) FindByID(_ context.Context, id int64) (*broker.Broker, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBrokers) ExistsByPhone(_ context.Context, phone string, excludeID int64) (bool, error) {
	for _, b := range f.byID {
		if b.Phone == phone && b.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBrokers) List(_ context.Context, filters *broker.ListFilters) ([]broker.Broker, int64, error) {
	out := []broker.Broker{}
	for _, b := range f.byID {
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (f *fakeBrokers) Update(_ context.Context, b *broker.Broker) error {
	b.Status = broker.StatusOf(b.Active)
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBrokers) Deactivate(_ context.Context, id int64) error {
	b, ok := f.byID[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	b.Active = false
	b.Status = broker.StatusInactive
	return nil
}

type fakeRecent struct{ limit int }

func (f *fakeRecent) ListRecentByBroker(_ context.Context, _ int64, limit int) ([]broker.RecentVisit, error) {
	f.limit = limit
	return []broker.RecentVisit{{VisitUUID: "v1"}}, nil
}

type fakeRanking struct {
	rows       []analytics.BrokerRow
	start, end time.Time
}

func (f *fakeRanking) BrokerRows(_ context.Context, start, end time.Time) ([]analytics.BrokerRow, error) {
	f.start, f.end = start, end
	return f.rows, nil
}

func newService(brokers *fakeBrokers, ranking *fakeRanking) *BrokerService {
	s := NewBrokerService(brokers, &fakeRecent{}, ranking, nil, time.UTC, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

func ptr[T any](v T) *T { return &v }

func TestCreateBroker(t *testing.T) {
	brokers := newFakeBrokers()
	s := newService(brokers, &fakeRanking{})

	b, err := s.CreateBroker(context.Background(), &broker.CreateBrokerRequest{Name: " Ana ", Phone: "(85) 98888-7777"})
	if err != nil {
		t.Fatalf("CreateBroker: %v", err)
	}
	if b.Name != "Ana" || b.Phone != "5585988887777" || b.Status != broker.StatusActive {
		t.Errorf("broker = %+v", b)
	}
	if b.Email != nil {
		t.Errorf("empty email should be stored as null")
	}

	_, err = s.CreateBroker(context.Background(), &broker.CreateBrokerRequest{Name: "Bia", Phone: "5585988887777"})
	if !errors.Is(err, xerrors.ErrConflict) {
		t.Errorf("duplicate phone err = %v, want conflict", err)
	}
}

func TestCreateBrokerRequiresNameAndPhone(t *testing.T) {
	s := newService(newFakeBrokers(), &fakeRanking{})

	for _, req := range []broker.CreateBrokerRequest{
		{Name: "", Phone: "5585"},
		{Name: "Ana", Phone: " "},
	} {
		if _, err := s.CreateBroker(context.Background(), &req); !errors.Is(err, xerrors.ErrInvalidInput) {
			t.Errorf("CreateBroker(%+v) err = %v, want invalid input", req, err)
		}
	}
}

func TestUpdateBroker(t *testing.T) {
	brokers := newFakeBrokers(
		&broker.Broker{ID: 1, Name: "Ana", Phone: "5585111", Active: true},
		&broker.Broker{ID: 2, Name: "Bia", Phone: "5585222", Active: true},
	)
	s := newService(brokers, &fakeRanking{})

	if _, err := s.UpdateBroker(context.Background(), 1, &broker.UpdateBrokerRequest{Phone: ptr("5585222")}); !errors.Is(err, xerrors.ErrConflict) {
		t.Errorf("taken phone err = %v, want conflict", err)
	}

	b, err := s.UpdateBroker(context.Background(), 1, &broker.UpdateBrokerRequest{
		Phone:  ptr("5585111"),
		Status: ptr(broker.StatusInactive),
		Creci:  ptr("CRECI-123"),
	})
	if err != nil {
		t.Fatalf("UpdateBroker: %v", err)
	}
	if b.Active || b.Status != broker.StatusInactive || *b.Creci != "CRECI-123" {
		t.Errorf("broker = %+v", b)
	}

	if _, err := s.UpdateBroker(context.Background(), 1, &broker.UpdateBrokerRequest{}); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("empty update err = %v", err)
	}
	if _, err := s.UpdateBroker(context.Background(), 1, &broker.UpdateBrokerRequest{Status: ptr(broker.Status("gone"))}); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("bad status err = %v", err)
	}
}

func TestDeactivateBroker(t *testing.T) {
	brokers := newFakeBrokers(&broker.Broker{ID: 1, Name: "Ana", Active: true})
	s := newService(brokers, &fakeRanking{})

	if err := s.DeactivateBroker(context.Background(), 1); err != nil {
		t.Fatalf("DeactivateBroker: %v", err)
	}
	if brokers.byID[1].Active {
		t.Error("broker still active")
	}
	if err := s.DeactivateBroker(context.Background(), 9); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("missing broker err = %v", err)
	}
}

func TestGetBrokerLoadsRecentVisits(t *testing.T) {
	recent := &fakeRecent{}
	s := NewBrokerService(newFakeBrokers(&broker.Broker{ID: 1}), recent, &fakeRanking{}, nil, time.UTC, zap.NewNop())

	d, err := s.GetBroker(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBroker: %v", err)
	}
	if recent.limit != RecentVisitLimit || len(d.RecentVisits) != 1 {
		t.Errorf("limit = %d, visits = %d", recent.limit, len(d.RecentVisits))
	}
}

func TestRanking(t *testing.T) {
	score := 4.5
	ranking := &fakeRanking{rows: []analytics.BrokerRow{
		{ID: 1, Name: "Caio", CompletedVisits: 2},
		{ID: 2, Name: "Ana", CompletedVisits: 5, AvgScore: &score},
	}}
	s := newService(newFakeBrokers(), ranking)

	resp, err := s.Ranking(context.Background(), "")
	if err != nil {
		t.Fatalf("Ranking: %v", err)
	}
	if resp.Period != analytics.Period30d {
		t.Errorf("period = %s, want 30d", resp.Period)
	}
	if resp.Data[0].ID != 2 || resp.Data[0].Rank != 1 || resp.Data[1].Rank != 2 {
		t.Errorf("ranking = %+v", resp.Data)
	}
	if days := ranking.end.Sub(ranking.start); days != 30*24*time.Hour {
		t.Errorf("window = %v, want 30 days", days)
	}

	if _, err := s.Ranking(context.Background(), "1y"); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("bad period err = %v", err)
	}
}
