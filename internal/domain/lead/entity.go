// internal/domain/lead/entity.go
package lead

import "time"

type Status string

const (
	StatusNew            Status = "new"
	StatusQualified      Status = "qualified"
	StatusVisitScheduled Status = "visit_scheduled"
	StatusNegotiating    Status = "negotiating"
	StatusConverted      Status = "converted"
	StatusLost           Status = "lost"
)

// pipeline is the forward order of non-lost statuses.
var pipeline = []Status{
	StatusNew,
	StatusQualified,
	StatusVisitScheduled,
	StatusNegotiating,
	StatusConverted,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusLost || s.position() >= 0
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusConverted || s == StatusLost
}

func (s Status) position() int {
	for i, p := range pipeline {
		if p == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether a lead may move from s to next. Moves go
// forward through the pipeline only; lost is reachable from any non-terminal
// status. Staying in place is always allowed.
func (s Status) CanTransition(next Status) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusLost {
		return true
	}
	return next.position() > s.position()
}

type Preferences struct {
	PropertyType    string   `json:"property_type"`
	Bedrooms        *int     `json:"bedrooms"`
	MinPrice        *float64 `json:"min_price"`
	MaxPrice        *float64 `json:"max_price"`
	Neighborhoods   []string `json:"neighborhoods"`
	AdditionalNotes string   `json:"additional_notes"`
}

type Lead struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Phone       string      `json:"phone" db:"phone"`
	Email       *string     `json:"email" db:"email"`
	Status      Status      `json:"status" db:"status"`
	StatusLabel string      `json:"status_label" db:"-"`
	Source      string      `json:"source" db:"source"`
	SourceURL   *string     `json:"source_url,omitempty" db:"source_url"`
	Preferences Preferences `json:"preferences"`

	// Landing-page property context
	PropertyTitle *string `json:"property_title,omitempty" db:"property_title"`
	PropertyLink  *string `json:"property_link,omitempty" db:"property_link"`
	PropertyArea  *int    `json:"property_area,omitempty" db:"property_area"`

	// Qualification
	QualificationScore  *int    `json:"score" db:"qualification_score"`
	QualificationBudget *string `json:"qualification_budget,omitempty" db:"qualification_budget"`
	QualificationRegion *string `json:"qualification_region,omitempty" db:"qualification_region"`
	QualificationIntent *string `json:"qualification_intent,omitempty" db:"qualification_intent"`

	ContactedAt       *time.Time `json:"contacted_at,omitempty" db:"contacted_at"`
	FirstMessageAt    *time.Time `json:"first_message_at,omitempty" db:"first_message_at"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty" db:"last_interaction_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
