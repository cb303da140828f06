package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/broker"
	xerrors "sells-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeBrokers struct {
	period      string
	deactivated int64
	created     *broker.CreateBrokerRequest
	err         error
}

func (f *fakeBrokers) ListBrokers(context.Context, *broker.ListFilters) (*broker.ListResponse, error) {
	return &broker.ListResponse{Data: []broker.Broker{}, Page: 1, PerPage: 20}, f.err
}

func (f *fakeBrokers) CreateBroker(_ context.Context, req *broker.CreateBrokerRequest) (*broker.Broker, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &broker.Broker{ID: 1, Name: req.Name, Phone: req.Phone}, nil
}

func (f *fakeBrokers) GetBroker(_ context.Context, id int64) (*broker.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &broker.Detail{Broker: broker.Broker{ID: id}}, nil
}

func (f *fakeBrokers) UpdateBroker(_ context.Context, id int64, _ *broker.UpdateBrokerRequest) (*broker.Broker, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &broker.Broker{ID: id}, nil
}

func (f *fakeBrokers) DeactivateBroker(_ context.Context, id int64) error {
	f.deactivated = id
	return f.err
}

func (f *fakeBrokers) Ranking(_ context.Context, rawPeriod string) (*broker.RankingResponse, error) {
	f.period = rawPeriod
	if f.err != nil {
		return nil, f.err
	}
	return &broker.RankingResponse{Period: analytics.Period30d, Data: []analytics.BrokerRank{}}, nil
}

func serve(svc BrokerService, method, path, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewBrokerHandler(svc).RegisterRoutes(r.Group("/api/v1/dashboard"))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRankingIsNotTakenForAnID(t *testing.T) {
	svc := &fakeBrokers{}
	w := serve(svc, http.MethodGet, "/api/v1/dashboard/brokers/ranking?period=30d", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if svc.period != "30d" {
		t.Errorf("period = %q", svc.period)
	}

	var body struct {
		Data broker.RankingResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Period != analytics.Period30d {
		t.Errorf("body = %+v", body)
	}
}

func TestCreateBroker(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"created", `{"name":"Carlos","phone":"85988887777"}`, nil, http.StatusCreated},
		{"duplicate phone", `{"name":"Carlos","phone":"85988887777"}`, xerrors.ErrConflict, http.StatusConflict},
		{"missing phone", `{"name":"Carlos"}`, xerrors.Invalid("phone", "is required"), http.StatusBadRequest},
		{"bad email", `{"name":"Carlos","phone":"1","email":"nope"}`, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(&fakeBrokers{err: tc.err}, http.MethodPost, "/api/v1/dashboard/brokers", tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body)
			}
		})
	}
}

func TestDeactivateBroker(t *testing.T) {
	svc := &fakeBrokers{}
	w := serve(svc, http.MethodDelete, "/api/v1/dashboard/brokers/5", "")
	if w.Code != http.StatusOK || svc.deactivated != 5 {
		t.Fatalf("status = %d, deactivated %d", w.Code, svc.deactivated)
	}

	w = serve(&fakeBrokers{err: xerrors.ErrNotFound}, http.MethodDelete, "/api/v1/dashboard/brokers/5", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}

	w = serve(&fakeBrokers{}, http.MethodDelete, "/api/v1/dashboard/brokers/x", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
}
