package analytics

import "sort"

// BrokerRow is a broker's visit aggregate over a period.
type BrokerRow struct {
	ID              int64
	Name            string
	CompletedVisits int64
	AvgScore        *float64
}

// BrokerRank is one line of the broker ranking.
type BrokerRank struct {
	Rank             int     `json:"rank"`
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	CompletedVisits  int64   `json:"completed_visits"`
	AvgFeedbackScore float64 `json:"avg_feedback_score"`
}

// RankBrokers orders brokers by completed visits, then average feedback
// (brokers without feedback sort as 0), then name and id. Ranks are 1-based
// positions with no gaps and no shared ranks.
func RankBrokers(rows []BrokerRow) []BrokerRank {
	out := make([]BrokerRank, 0, len(rows))
	for _, r := range rows {
		var avg float64
		if r.AvgScore != nil {
			avg = round(*r.AvgScore, 2)
		}
		out = append(out, BrokerRank{
			ID:               r.ID,
			Name:             r.Name,
			CompletedVisits:  r.CompletedVisits,
			AvgFeedbackScore: avg,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CompletedVisits != b.CompletedVisits {
			return a.CompletedVisits > b.CompletedVisits
		}
		if a.AvgFeedbackScore != b.AvgFeedbackScore {
			return a.AvgFeedbackScore > b.AvgFeedbackScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
