// internal/handlers/lead/lead.go
package lead

import (
	"context"
	"net/http"
	"strconv"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/lead"
	"sells-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// LeadService is the part of the lead service the handlers use.
type LeadService interface {
	ListLeads(ctx context.Context, filters *lead.ListFilters) (*lead.ListResponse, error)
	GetLead(ctx context.Context, id int64) (*lead.Detail, error)
	GetConversation(ctx context.Context, id int64) (*conversation.Thread, error)
	UpdateLead(ctx context.Context, id int64, req *lead.UpdateLeadRequest) (*lead.Lead, error)
	RegisterLanding(ctx context.Context, req *lead.LandingLeadRequest) (*lead.LandingLeadResponse, error)
}

type LeadHandler struct {
	leadService LeadService
}

func NewLeadHandler(leadService LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// RegisterRoutes mounts the dashboard lead endpoints on r.
func (h *LeadHandler) RegisterRoutes(r gin.IRouter) {
	leads := r.Group("/leads")
	leads.GET("", h.ListLeads)
	leads.GET("/:id", h.GetLead)
	leads.GET("/:id/conversation", h.GetConversation)
	leads.PATCH("/:id", h.UpdateLead)
}

// ListLeads returns one page of leads
func (h *LeadHandler) ListLeads(c *gin.Context) {
	var filters lead.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.leadService.ListLeads(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list leads", err)
		return
	}

	response.Success(c, http.StatusOK, "leads retrieved", result)
}

// GetLead returns a lead with its visits
func (h *LeadHandler) GetLead(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	result, err := h.leadService.GetLead(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to get lead", err)
		return
	}

	response.Success(c, http.StatusOK, "lead retrieved", result)
}

// GetConversation returns the lead's WhatsApp messages, oldest first
func (h *LeadHandler) GetConversation(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	result, err := h.leadService.GetConversation(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to get conversation", err)
		return
	}

	response.Success(c, http.StatusOK, "conversation retrieved", result)
}

func (h *LeadHandler) UpdateLead(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req lead.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.leadService.UpdateLead(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, "failed to update lead", err)
		return
	}

	response.Success(c, http.StatusOK, "lead updated", result)
}

// RegisterLanding takes a lead from the landing page form.
func (h *LeadHandler) RegisterLanding(c *gin.Context) {
	var req lead.LandingLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.leadService.RegisterLanding(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to register lead", err)
		return
	}

	response.Success(c, http.StatusCreated, "lead registered", result)
}

func leadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid lead ID", err)
		return 0, false
	}
	return id, true
}
