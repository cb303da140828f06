// internal/domain/visit/dto.go
package visit

import "time"

type ListFilters struct {
	Status   string     `form:"status"`
	BrokerID *int64     `form:"broker_id"`
	LeadID   *int64     `form:"-"`
	DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1"`
}

type ListResponse struct {
	Visits     []Visit `json:"visits"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// BrokerSummary is the broker embedded in a visit detail.
type BrokerSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

type Detail struct {
	Visit
	Broker *BrokerSummary `json:"broker,omitempty"`
}

type UpdateVisitRequest struct {
	Status            *Status `json:"status"`
	BrokerID          *int64  `json:"broker_id"`
	FeedbackScore     *int    `json:"feedback_score"`
	BrokerConfirmed   *bool   `json:"broker_confirmed"`
	LeadConfirmed     *bool   `json:"lead_confirmed"`
	ConfirmationSent  *bool   `json:"confirmation_sent"`
	FeedbackRequested *bool   `json:"feedback_requested"`
	Notes             *string `json:"notes"`
}

func (r *UpdateVisitRequest) Empty() bool {
	return r.Status == nil && r.BrokerID == nil && r.FeedbackScore == nil && r.BrokerConfirmed == nil &&
		r.LeadConfirmed == nil && r.ConfirmationSent == nil && r.FeedbackRequested == nil && r.Notes == nil
}

type CreateVisitRequest struct {
	LeadID          *int64    `json:"lead_id"`
	LeadName        string    `json:"lead_name"`
	LeadPhone       string    `json:"lead_phone" binding:"required"`
	BrokerID        *int64    `json:"broker_id"`
	PropertyTitle   string    `json:"property_title"`
	PropertyAddress string    `json:"property_address"`
	PropertyType    string    `json:"property_type"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	Notes           string    `json:"notes"`
}
