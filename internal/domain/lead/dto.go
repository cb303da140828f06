// internal/domain/lead/dto.go
package lead

import (
	"time"

	"sells-service/internal/domain/visit"
)

type ListFilters struct {
	Status   string     `form:"status"`
	Search   string     `form:"search"` // name or phone
	DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1"`
}

type ListResponse struct {
	Leads      []Lead `json:"leads"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

// Detail is a lead with its visits, newest first.
type Detail struct {
	Lead
	Visits []visit.Visit `json:"visits"`
}

type UpdateLeadRequest struct {
	Status              *Status `json:"status"`
	Name                *string `json:"name" binding:"omitempty,max=255"`
	Email               *string `json:"email" binding:"omitempty,email,max=255"`
	QualificationScore  *int    `json:"qualification_score" binding:"omitempty,min=0,max=100"`
	QualificationBudget *string `json:"qualification_budget"`
	QualificationRegion *string `json:"qualification_region"`
	QualificationIntent *string `json:"qualification_intent"`
}

// Empty reports whether the request changes nothing.
func (r *UpdateLeadRequest) Empty() bool {
	return r.Status == nil && r.Name == nil && r.Email == nil && r.QualificationScore == nil &&
		r.QualificationBudget == nil && r.QualificationRegion == nil && r.QualificationIntent == nil
}

type LandingProperty struct {
	Title        string  `json:"title" binding:"required"`
	Price        float64 `json:"price"`
	Neighborhood string  `json:"neighborhood"`
	Bedrooms     int     `json:"bedrooms"`
	Area         int     `json:"area"`
	ImageURL     string  `json:"image_url"`
	Link         string  `json:"link"`
	Description  string  `json:"description"`
}

type LandingLeadRequest struct {
	Phone     string          `json:"phone" binding:"required"`
	Name      string          `json:"name"`
	SourceURL string          `json:"source_url"`
	Property  LandingProperty `json:"property" binding:"required"`
}

type LandingLeadResponse struct {
	LeadID        int64      `json:"lead_id"`
	Phone         string     `json:"phone"`
	FollowupDueAt *time.Time `json:"followup_due_at,omitempty"`
}
