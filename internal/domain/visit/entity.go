// internal/domain/visit/entity.go
package visit

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether a visit may move from s to next. Staying in
// place is allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return next.IsValid()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	MinFeedbackScore = 1
	MaxFeedbackScore = 5
)

type Visit struct {
	ID              int64     `json:"id" db:"id"`
	UUID            string    `json:"visit_uuid" db:"visit_uuid"`
	LeadID          *int64    `json:"lead_id" db:"lead_id"`
	LeadName        string    `json:"lead_name" db:"lead_name"`
	LeadPhone       string    `json:"lead_phone" db:"lead_phone"`
	BrokerID        *int64    `json:"broker_id" db:"broker_id"`
	PropertyTitle   string    `json:"property_title" db:"property_title"`
	PropertyAddress string    `json:"property_address" db:"property_address"`
	PropertyType    string    `json:"property_type" db:"property_type"`
	ScheduledAt     time.Time `json:"scheduled_at" db:"scheduled_at"`
	Status          Status    `json:"status" db:"status"`
	StatusLabel     string    `json:"status_label" db:"-"`
	Notes           string    `json:"notes" db:"notes"`

	ConfirmationSent  bool       `json:"confirmation_sent" db:"confirmation_sent"`
	LeadConfirmed     bool       `json:"lead_confirmed" db:"lead_confirmed"`
	LeadConfirmedAt   *time.Time `json:"lead_confirmed_at,omitempty" db:"lead_confirmed_at"`
	BrokerConfirmed   bool       `json:"broker_confirmed" db:"broker_confirmed"`
	BrokerConfirmedAt *time.Time `json:"broker_confirmed_at,omitempty" db:"broker_confirmed_at"`

	BrokerConfirmationSent bool `json:"broker_confirmation_sent" db:"broker_confirmation_sent"`

	FeedbackRequested bool       `json:"feedback_requested" db:"feedback_requested"`
	FeedbackScore     *int       `json:"feedback_score" db:"feedback_score"`
	FeedbackAt        *time.Time `json:"feedback_at,omitempty" db:"feedback_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduledDate and ScheduledTime split ScheduledAt for table views.
func (v *Visit) ScheduledDate() string { return v.ScheduledAt.Format("2006-01-02") }
func (v *Visit) ScheduledTime() string { return v.ScheduledAt.Format("15:04") }
