package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/broker"
	"sells-service/internal/domain/visit"
	xerrors "sells-service/internal/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/dashboard", time.Second)
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", 404, `{"success":false,"message":"failed to get lead","error":"resource not found"}`, xerrors.ErrNotFound},
		{"bad request", 400, `{"success":false,"error":"invalid status"}`, xerrors.ErrInvalidInput},
		{"conflict", 409, `{"success":false,"error":"phone already registered"}`, xerrors.ErrConflict},
		{"server error", 500, `{"success":false}`, xerrors.ErrTransport},
		{"gateway html", 502, `<html>bad gateway</html>`, xerrors.ErrTransport},
		{"bad json", 200, `{"success":tru`, xerrors.ErrUnexpectedShape},
		{"null data", 200, `{"success":true,"message":"ok","data":null}`, xerrors.ErrUnexpectedShape},
		{"no success flag", 200, `{"data":{"id":1}}`, xerrors.ErrUnexpectedShape},
		{"missing id", 200, `{"success":true,"data":{"name":"Ana"}}`, xerrors.ErrUnexpectedShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, reply(tc.status, tc.body))
			_, err := c.GetLead(context.Background(), 1)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransportErrorOnUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Metrics(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.Status != 0 {
		t.Fatalf("err = %v", err)
	}
}

func TestTimeSeriesRequestAndShape(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		points := strings.Repeat(`{"date":"2025-03-01","leads":1,"visits":0},`, 6) + `{"date":"2025-03-07","leads":0,"visits":0}`
		reply(200, `{"success":true,"data":{"period":"7d","data":[`+points+`]}}`)(w, r)
	})

	ts, err := c.TimeSeries(context.Background(), "7d")
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if gotQuery != "period=7d" || ts.Period != analytics.Period7d || len(ts.Data) != 7 {
		t.Errorf("query %q, resp %+v", gotQuery, ts)
	}

	idle := newTestClient(t, reply(200, `{"success":true,"data":{"period":"7d","data":[]}}`))
	if ts, err := idle.TimeSeries(context.Background(), "7d"); err != nil || len(ts.Data) != 0 {
		t.Errorf("idle series = %+v, %v", ts, err)
	}

	short := newTestClient(t, reply(200, `{"success":true,"data":{"period":"7d","data":[{"date":"2025-03-07","leads":1,"visits":0}]}}`))
	if _, err := short.TimeSeries(context.Background(), "7d"); !errors.Is(err, xerrors.ErrUnexpectedShape) {
		t.Errorf("short series err = %v", err)
	}
}

func TestCreateBrokerValidatesLocally(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		reply(201, `{"success":true,"data":{"id":3,"name":"Carlos","phone":"85988887777"}}`)(w, r)
	})

	_, err := c.CreateBroker(context.Background(), broker.CreateBrokerRequest{Name: "Carlos"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "phone" {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatal("request sent despite missing phone")
	}

	b, err := c.CreateBroker(context.Background(), broker.CreateBrokerRequest{Name: "Carlos", Phone: "85988887777"})
	if err != nil || b.ID != 3 {
		t.Fatalf("CreateBroker = %+v, %v", b, err)
	}
}

func TestUpdateVisitStatusSendsPatch(t *testing.T) {
	var method, path, body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		reply(200, `{"success":true,"data":{"visit_uuid":"abc","status":"confirmed"}}`)(w, r)
	})

	v, err := c.UpdateVisitStatus(context.Background(), "abc", visit.StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateVisitStatus: %v", err)
	}
	if method != http.MethodPatch || path != "/api/v1/dashboard/visits/abc" || !strings.Contains(body, `"status":"confirmed"`) {
		t.Errorf("%s %s %s", method, path, body)
	}
	if v.Status != visit.StatusConfirmed {
		t.Errorf("visit = %+v", v)
	}

	if _, err := c.UpdateVisitStatus(context.Background(), "abc", "done"); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("unknown status err = %v", err)
	}
}

func TestDeactivateBroker(t *testing.T) {
	c := newTestClient(t, reply(200, `{"success":true,"message":"broker deactivated"}`))
	if err := c.DeactivateBroker(context.Background(), 4); err != nil {
		t.Fatalf("DeactivateBroker: %v", err)
	}
}
