package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sells-service/internal/analytics"
	"sells-service/internal/domain/broker"
	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/lead"
	"sells-service/internal/domain/visit"
)

// LeadQuery filters the lead list. Zero values are omitted.
type LeadQuery struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

func (q LeadQuery) values() url.Values {
	v := url.Values{}
	setString(v, "status", q.Status)
	setString(v, "search", q.Search)
	setInt(v, "page", q.Page)
	setInt(v, "page_size", q.PageSize)
	return v
}

type VisitQuery struct {
	Status   string
	BrokerID int64
	Page     int
	PageSize int
}

func (q VisitQuery) values() url.Values {
	v := url.Values{}
	setString(v, "status", q.Status)
	if q.BrokerID > 0 {
		v.Set("broker_id", strconv.FormatInt(q.BrokerID, 10))
	}
	setInt(v, "page", q.Page)
	setInt(v, "page_size", q.PageSize)
	return v
}

type BrokerQuery struct {
	Status  string
	Search  string
	Page    int
	PerPage int
}

func (q BrokerQuery) values() url.Values {
	v := url.Values{}
	setString(v, "status", q.Status)
	setString(v, "search", q.Search)
	setInt(v, "page", q.Page)
	setInt(v, "per_page", q.PerPage)
	return v
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

func periodQuery(period string) url.Values {
	v := url.Values{}
	setString(v, "period", period)
	return v
}

func (c *Client) Metrics(ctx context.Context) (*analytics.Metrics, error) {
	var out analytics.Metrics
	if err := c.do(ctx, http.MethodGet, "/metrics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TimeSeries(ctx context.Context, period string) (*analytics.TimeSeriesResponse, error) {
	const path = "/analytics/timeseries"
	var out analytics.TimeSeriesResponse
	if err := c.do(ctx, http.MethodGet, path, periodQuery(period), nil, &out); err != nil {
		return nil, err
	}
	if err := required(path, "period", out.Period.Days() > 0); err != nil {
		return nil, err
	}
	// an idle window comes back empty, otherwise every day is present
	if err := required(path, "daily points", len(out.Data) == 0 || len(out.Data) == out.Period.Days()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Funnel(ctx context.Context) (*analytics.FunnelResponse, error) {
	const path = "/analytics/funnel"
	var out analytics.FunnelResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if err := required(path, "stages", out.Stages != nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sources(ctx context.Context) (*analytics.SourcesResponse, error) {
	const path = "/analytics/sources"
	var out analytics.SourcesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if err := required(path, "sources", out.Sources != nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Neighborhoods(ctx context.Context) (*analytics.NeighborhoodsResponse, error) {
	const path = "/analytics/neighborhoods"
	var out analytics.NeighborhoodsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if err := required(path, "neighborhoods", out.Neighborhoods != nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListLeads(ctx context.Context, q LeadQuery) (*lead.ListResponse, error) {
	var out lead.ListResponse
	if err := c.do(ctx, http.MethodGet, "/leads", q.values(), nil, &out); err != nil {
		return nil, err
	}
	if err := required("/leads", "leads", out.Leads != nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetLead(ctx context.Context, id int64) (*lead.Detail, error) {
	path := fmt.Sprintf("/leads/%d", id)
	var out lead.Detail
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if err := required(path, "id", out.ID != 0); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Conversation(ctx context.Context, leadID int64) (*conversation.Thread, error) {
	path := fmt.Sprintf("/leads/%d/conversation", leadID)
	var out conversation.Thread
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateLeadStatus(ctx context.Context, id int64, status lead.Status) (*lead.Lead, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown lead status %q", status)}
	}
	path := fmt.Sprintf("/leads/%d", id)
	var out lead.Lead
	req := lead.UpdateLeadRequest{Status: &status}
	if err := c.do(ctx, http.MethodPatch, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVisits(ctx context.Context, q VisitQuery) (*visit.ListResponse, error) {
	var out visit.ListResponse
	if err := c.do(ctx, http.MethodGet, "/visits", q.values(), nil, &out); err != nil {
		return nil, err
	}
	if err := required("/visits", "visits", out.Visits != nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateVisitStatus(ctx context.Context, uuid string, status visit.Status) (*visit.Visit, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown visit status %q", status)}
	}
	path := "/visits/" + url.PathEscape(uuid)
	var out visit.Visit
	req := visit.UpdateVisitRequest{Status: &status}
	if err := c.do(ctx, http.MethodPatch, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBrokers(ctx context.Context, q BrokerQuery) (*broker.ListResponse, error) {
	var out broker.ListResponse
	if err := c.do(ctx, http.MethodGet, "/brokers", q.values(), nil, &out); err != nil {
		return nil, err
	}
	if err := required("/brokers", "data", out.Data != nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBroker checks name and phone before sending anything.
func (c *Client) CreateBroker(ctx context.Context, req broker.CreateBrokerRequest) (*broker.Broker, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, &ValidationError{Field: "phone", Message: "is required"}
	}

	var out broker.Broker
	if err := c.do(ctx, http.MethodPost, "/brokers", nil, req, &out); err != nil {
		return nil, err
	}
	if err := required("/brokers", "id", out.ID != 0); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBroker(ctx context.Context, id int64, req broker.UpdateBrokerRequest) (*broker.Broker, error) {
	if req.Empty() {
		return nil, &ValidationError{Message: "no fields to update"}
	}
	var out broker.Broker
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/brokers/%d", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeactivateBroker(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/brokers/%d", id), nil, nil, nil)
}

func (c *Client) Ranking(ctx context.Context, period string) (*broker.RankingResponse, error) {
	const path = "/brokers/ranking"
	var out broker.RankingResponse
	if err := c.do(ctx, http.MethodGet, path, periodQuery(period), nil, &out); err != nil {
		return nil, err
	}
	if err := required(path, "data", out.Data != nil); err != nil {
		return nil, err
	}
	return &out, nil
}
