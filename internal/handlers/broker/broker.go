// internal/handlers/broker/broker.go
package broker

import (
	"context"
	"net/http"
	"strconv"

	"sells-service/internal/domain/broker"
	"sells-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type BrokerService interface {
	ListBrokers(ctx context.Context, filters *broker.ListFilters) (*broker.ListResponse, error)
	CreateBroker(ctx context.Context, req *broker.CreateBrokerRequest) (*broker.Broker, error)
	GetBroker(ctx context.Context, id int64) (*broker.Detail, error)
	UpdateBroker(ctx context.Context, id int64, req *broker.UpdateBrokerRequest) (*broker.Broker, error)
	DeactivateBroker(ctx context.Context, id int64) error
	Ranking(ctx context.Context, rawPeriod string) (*broker.RankingResponse, error)
}

type BrokerHandler struct {
	brokerService BrokerService
}

func NewBrokerHandler(brokerService BrokerService) *BrokerHandler {
	return &BrokerHandler{brokerService: brokerService}
}

func (h *BrokerHandler) RegisterRoutes(r gin.IRouter) {
	brokers := r.Group("/brokers")
	brokers.GET("", h.ListBrokers)
	brokers.POST("", h.CreateBroker)
	brokers.GET("/ranking", h.Ranking)
	brokers.GET("/:id", h.GetBroker)
	brokers.PATCH("/:id", h.UpdateBroker)
	brokers.DELETE("/:id", h.DeactivateBroker)
}

func (h *BrokerHandler) ListBrokers(c *gin.Context) {
	var filters broker.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.brokerService.ListBrokers(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list brokers", err)
		return
	}

	response.Success(c, http.StatusOK, "brokers retrieved", result)
}

// CreateBroker registers a broker. Phones are unique.
func (h *BrokerHandler) CreateBroker(c *gin.Context) {
	var req broker.CreateBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.brokerService.CreateBroker(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create broker", err)
		return
	}

	response.Success(c, http.StatusCreated, "broker created successfully", result)
}

// GetBroker returns the broker with its stats and latest visits
func (h *BrokerHandler) GetBroker(c *gin.Context) {
	id, ok := brokerID(c)
	if !ok {
		return
	}

	result, err := h.brokerService.GetBroker(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to get broker", err)
		return
	}

	response.Success(c, http.StatusOK, "broker retrieved", result)
}

func (h *BrokerHandler) UpdateBroker(c *gin.Context) {
	id, ok := brokerID(c)
	if !ok {
		return
	}

	var req broker.UpdateBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.brokerService.UpdateBroker(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, "failed to update broker", err)
		return
	}

	response.Success(c, http.StatusOK, "broker updated", result)
}

// DeactivateBroker marks the broker inactive. Nothing is deleted.
func (h *BrokerHandler) DeactivateBroker(c *gin.Context) {
	id, ok := brokerID(c)
	if !ok {
		return
	}

	if err := h.brokerService.DeactivateBroker(c.Request.Context(), id); err != nil {
		response.FromError(c, "failed to deactivate broker", err)
		return
	}

	response.Success(c, http.StatusOK, "broker deactivated", nil)
}

func (h *BrokerHandler) Ranking(c *gin.Context) {
	result, err := h.brokerService.Ranking(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.FromError(c, "failed to rank brokers", err)
		return
	}

	response.Success(c, http.StatusOK, "ranking retrieved", result)
}

func brokerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid broker ID", err)
		return 0, false
	}
	return id, true
}
