// internal/handlers/visit/visit.go
package visit

import (
	"context"
	"net/http"

	"sells-service/internal/domain/visit"
	"sells-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VisitService interface {
	ListVisits(ctx context.Context, filters *visit.ListFilters) (*visit.ListResponse, error)
	GetVisit(ctx context.Context, id string) (*visit.Detail, error)
	CreateVisit(ctx context.Context, req *visit.CreateVisitRequest) (*visit.Visit, error)
	UpdateVisit(ctx context.Context, id string, req *visit.UpdateVisitRequest) (*visit.Visit, error)
}

type VisitHandler struct {
	visitService VisitService
}

func NewVisitHandler(visitService VisitService) *VisitHandler {
	return &VisitHandler{visitService: visitService}
}

func (h *VisitHandler) RegisterRoutes(r gin.IRouter) {
	visits := r.Group("/visits")
	visits.GET("", h.ListVisits)
	visits.POST("", h.CreateVisit)
	visits.GET("/:uuid", h.GetVisit)
	visits.PATCH("/:uuid", h.UpdateVisit)
}

// ListVisits returns one page of visits, soonest first
func (h *VisitHandler) ListVisits(c *gin.Context) {
	var filters visit.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.visitService.ListVisits(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list visits", err)
		return
	}

	response.Success(c, http.StatusOK, "visits retrieved", result)
}

func (h *VisitHandler) GetVisit(c *gin.Context) {
	id, ok := visitUUID(c)
	if !ok {
		return
	}

	result, err := h.visitService.GetVisit(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to get visit", err)
		return
	}

	response.Success(c, http.StatusOK, "visit retrieved", result)
}

// CreateVisit schedules a visit from the dashboard
func (h *VisitHandler) CreateVisit(c *gin.Context) {
	var req visit.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.visitService.CreateVisit(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create visit", err)
		return
	}

	response.Success(c, http.StatusCreated, "visit created successfully", result)
}

func (h *VisitHandler) UpdateVisit(c *gin.Context) {
	id, ok := visitUUID(c)
	if !ok {
		return
	}

	var req visit.UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.visitService.UpdateVisit(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, "failed to update visit", err)
		return
	}

	response.Success(c, http.StatusOK, "visit updated", result)
}

func visitUUID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid visit ID", err)
		return "", false
	}
	return id.String(), true
}
