package lead

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/lead"
	xerrors "sells-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeLeads struct {
	filters *lead.ListFilters
	update  *lead.UpdateLeadRequest
	landing *lead.LandingLeadRequest
	err     error
}

func (f *fakeLeads) ListLeads(_ context.Context, filters *lead.ListFilters) (*lead.ListResponse, error) {
	f.filters = filters
	return &lead.ListResponse{Leads: []lead.Lead{{ID: 1}}, Total: 1, Page: 1, PageSize: 20, TotalPages: 1}, f.err
}

func (f *fakeLeads) GetLead(_ context.Context, id int64) (*lead.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &lead.Detail{Lead: lead.Lead{ID: id, Phone: "5585999990000"}}, nil
}

func (f *fakeLeads) GetConversation(_ context.Context, id int64) (*conversation.Thread, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &conversation.Thread{LeadID: id, Messages: []conversation.Message{{Content: "oi"}}}, nil
}

func (f *fakeLeads) UpdateLead(_ context.Context, id int64, req *lead.UpdateLeadRequest) (*lead.Lead, error) {
	f.update = req
	if f.err != nil {
		return nil, f.err
	}
	return &lead.Lead{ID: id, Status: *req.Status}, nil
}

func (f *fakeLeads) RegisterLanding(_ context.Context, req *lead.LandingLeadRequest) (*lead.LandingLeadResponse, error) {
	f.landing = req
	return &lead.LandingLeadResponse{LeadID: 7, Phone: "5585999990000"}, f.err
}

func newRouter(svc LeadService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewLeadHandler(svc)
	h.RegisterRoutes(r.Group("/api/v1/dashboard"))
	r.POST("/api/landing-lead", h.RegisterLanding)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListLeadsBindsFilters(t *testing.T) {
	svc := &fakeLeads{}
	w := do(newRouter(svc), http.MethodGet, "/api/v1/dashboard/leads?status=new&search=ana&page=2&page_size=50&date_from=2025-03-01", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	f := svc.filters
	if f.Status != "new" || f.Search != "ana" || f.Page != 2 || f.PageSize != 50 {
		t.Errorf("filters = %+v", f)
	}
	if f.DateFrom == nil || f.DateFrom.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("date_from = %v", f.DateFrom)
	}

	var body struct {
		Success bool              `json:"success"`
		Data    lead.ListResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Data.Total != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestListLeadsRejectsBadQuery(t *testing.T) {
	w := do(newRouter(&fakeLeads{}), http.MethodGet, "/api/v1/dashboard/leads?page=0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestLeadErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"bad id", "/api/v1/dashboard/leads/abc", nil, http.StatusBadRequest},
		{"not found", "/api/v1/dashboard/leads/9", xerrors.ErrNotFound, http.StatusNotFound},
		{"conversation not found", "/api/v1/dashboard/leads/9/conversation", xerrors.ErrNotFound, http.StatusNotFound},
		{"ok", "/api/v1/dashboard/leads/9/conversation", nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newRouter(&fakeLeads{err: tc.err}), http.MethodGet, tc.path, "")
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestUpdateLead(t *testing.T) {
	svc := &fakeLeads{}
	w := do(newRouter(svc), http.MethodPatch, "/api/v1/dashboard/leads/3", `{"status":"qualified"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if svc.update == nil || *svc.update.Status != lead.StatusQualified {
		t.Errorf("update = %+v", svc.update)
	}

	svc = &fakeLeads{err: xerrors.Invalid("status", "cannot move lead from converted to new")}
	w = do(newRouter(svc), http.MethodPatch, "/api/v1/dashboard/leads/3", `{"status":"new"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid transition status = %d", w.Code)
	}
}

func TestRegisterLanding(t *testing.T) {
	svc := &fakeLeads{}
	body := `{"phone":"(85) 99999-0000","name":"Ana","property":{"title":"Apto Aldeota","bedrooms":2}}`
	w := do(newRouter(svc), http.MethodPost, "/api/landing-lead", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if svc.landing.Property.Title != "Apto Aldeota" || svc.landing.Property.Bedrooms != 2 {
		t.Errorf("landing = %+v", svc.landing)
	}

	w = do(newRouter(&fakeLeads{}), http.MethodPost, "/api/landing-lead", `{"phone":"85999990000"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing property status = %d", w.Code)
	}
}
