// internal/domain/broker/dto.go
package broker

import "sells-service/internal/analytics"

type CreateBrokerRequest struct {
	Name  string `json:"name" binding:"max=255"`
	Phone string `json:"phone" binding:"max=20"`
	Email string `json:"email" binding:"omitempty,email,max=255"`
	Creci string `json:"creci" binding:"max=50"`
}

type UpdateBrokerRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=255"`
	Phone  *string `json:"phone" binding:"omitempty,max=20"`
	Email  *string `json:"email" binding:"omitempty,max=255"`
	Creci  *string `json:"creci" binding:"omitempty,max=50"`
	Status *Status `json:"status"`
}

func (r *UpdateBrokerRequest) Empty() bool {
	return r.Name == nil && r.Phone == nil && r.Email == nil && r.Creci == nil && r.Status == nil
}

type ListFilters struct {
	Status  string `form:"status"`
	Search  string `form:"search"` // name, email, phone or creci
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1"`
}

type ListResponse struct {
	Data    []Broker `json:"data"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Pages   int      `json:"pages"`
}

type Detail struct {
	Broker
	RecentVisits []RecentVisit `json:"recent_visits"`
}

type RankingResponse struct {
	Period analytics.Period       `json:"period"`
	Data   []analytics.BrokerRank `json:"data"`
}
