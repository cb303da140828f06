// internal/handlers/analytics/analytics.go
package analytics

import (
	"context"
	"net/http"

	"sells-service/internal/analytics"
	"sells-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsService interface {
	Metrics(ctx context.Context) (analytics.Metrics, error)
	TimeSeries(ctx context.Context, rawPeriod string) (*analytics.TimeSeriesResponse, error)
	Funnel(ctx context.Context) (*analytics.FunnelResponse, error)
	Sources(ctx context.Context) (*analytics.SourcesResponse, error)
	Neighborhoods(ctx context.Context) (*analytics.NeighborhoodsResponse, error)
}

type AnalyticsHandler struct {
	analyticsService AnalyticsService
}

func NewAnalyticsHandler(analyticsService AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/metrics", h.Metrics)

	panels := r.Group("/analytics")
	panels.GET("/timeseries", h.TimeSeries)
	panels.GET("/funnel", h.Funnel)
	panels.GET("/sources", h.Sources)
	panels.GET("/neighborhoods", h.Neighborhoods)
}

// Metrics returns the headline dashboard counters
func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	result, err := h.analyticsService.Metrics(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load metrics", err)
		return
	}

	response.Success(c, http.StatusOK, "metrics retrieved", result)
}

// TimeSeries returns daily lead and visit counts for ?period=7d|30d|90d
func (h *AnalyticsHandler) TimeSeries(c *gin.Context) {
	result, err := h.analyticsService.TimeSeries(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.FromError(c, "failed to load time series", err)
		return
	}

	response.Success(c, http.StatusOK, "time series retrieved", result)
}

func (h *AnalyticsHandler) Funnel(c *gin.Context) {
	result, err := h.analyticsService.Funnel(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load funnel", err)
		return
	}

	response.Success(c, http.StatusOK, "funnel retrieved", result)
}

func (h *AnalyticsHandler) Sources(c *gin.Context) {
	result, err := h.analyticsService.Sources(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load sources", err)
		return
	}

	response.Success(c, http.StatusOK, "sources retrieved", result)
}

func (h *AnalyticsHandler) Neighborhoods(c *gin.Context) {
	result, err := h.analyticsService.Neighborhoods(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load neighborhoods", err)
		return
	}

	response.Success(c, http.StatusOK, "neighborhoods retrieved", result)
}
