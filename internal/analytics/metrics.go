package analytics

// MetricsSnapshot is the pre-aggregated input for Summarize.
type MetricsSnapshot struct {
	TotalLeads     int64
	LeadsToday     int64
	LeadsByStatus  map[string]int64
	VisitsByStatus map[string]int64
}

// Metrics is the dashboard's headline counters.
type Metrics struct {
	TotalLeads      int64            `json:"total_leads"`
	LeadsToday      int64            `json:"leads_today"`
	LeadsByStatus   map[string]int64 `json:"leads_by_status"`
	TotalVisits     int64            `json:"total_visits"`
	PendingVisits   int64            `json:"pending_visits"`
	ConfirmedVisits int64            `json:"confirmed_visits"`
	CompletedVisits int64            `json:"completed_visits"`
	CancelledVisits int64            `json:"cancelled_visits"`
	VisitsByStatus  map[string]int64 `json:"visits_by_status"`
	ConversionRate  float64          `json:"conversion_rate"`
}

// Summarize computes the headline counters. Conversion rate is completed
// visits over total leads, as a percentage rounded to two decimals.
func Summarize(s MetricsSnapshot) Metrics {
	m := Metrics{
		TotalLeads:     s.TotalLeads,
		LeadsToday:     s.LeadsToday,
		LeadsByStatus:  copyCounts(s.LeadsByStatus),
		VisitsByStatus: copyCounts(s.VisitsByStatus),
	}

	for _, n := range m.VisitsByStatus {
		m.TotalVisits += n
	}
	m.PendingVisits = m.VisitsByStatus["pending"]
	m.ConfirmedVisits = m.VisitsByStatus["confirmed"]
	m.CompletedVisits = m.VisitsByStatus["completed"]
	m.CancelledVisits = m.VisitsByStatus["cancelled"]
	m.ConversionRate = percent(m.CompletedVisits, m.TotalLeads, 2)

	return m
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
