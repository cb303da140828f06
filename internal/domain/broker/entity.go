// internal/domain/broker/entity.go
package broker

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// StatusOf maps the stored active flag to a Status.
func StatusOf(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusInactive
}

type Broker struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     *string   `json:"email" db:"email"`
	Creci     *string   `json:"creci" db:"creci"`
	Active    bool      `json:"-" db:"active"`
	Status    Status    `json:"status" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Read-time aggregates over the broker's visits
	Stats
}

type Stats struct {
	TotalVisits      int64   `json:"total_visits"`
	PendingVisits    int64   `json:"pending_visits"`
	ConfirmedVisits  int64   `json:"confirmed_visits"`
	CompletedVisits  int64   `json:"completed_visits"`
	AvgFeedbackScore float64 `json:"avg_feedback_score"`
}

// RecentVisit is a compact visit row shown on the broker detail page.
type RecentVisit struct {
	VisitUUID     string    `json:"id"`
	LeadName      string    `json:"lead_name"`
	PropertyTitle string    `json:"property_title"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        string    `json:"status"`
	FeedbackScore *int      `json:"feedback_score"`
}
