package analytics

import "sort"

// NeighborhoodLimit caps the neighborhood ranking.
const NeighborhoodLimit = 10

// SliceLabelThreshold is the minimum share, in percent, for a pie slice to
// carry its own label.
const SliceLabelThreshold = 5.0

// SourceRow is a raw per-source aggregate.
type SourceRow struct {
	Source string
	Leads  int64
	Visits int64
}

// SourceBucket is a ranked source.
type SourceBucket struct {
	Source         string  `json:"source"`
	Label          string  `json:"label"`
	Count          int64   `json:"count"`
	Percentage     float64 `json:"percentage"`
	Visits         int64   `json:"visits"`
	ConversionRate float64 `json:"conversion_rate"`
	ShowLabel      bool    `json:"show_label"`
}

// RankSources sorts sources by lead count, descending, keeping input order
// among equal counts. Percentages are of the grand total.
func RankSources(rows []SourceRow) []SourceBucket {
	sorted := make([]SourceRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Leads > sorted[j].Leads })

	var total int64
	for _, r := range sorted {
		total += r.Leads
	}

	out := make([]SourceBucket, 0, len(sorted))
	for _, r := range sorted {
		pct := percent(r.Leads, total, 2)
		out = append(out, SourceBucket{
			Source:         r.Source,
			Label:          SourceLabel(r.Source),
			Count:          r.Leads,
			Percentage:     pct,
			Visits:         r.Visits,
			ConversionRate: percent(r.Visits, r.Leads, 2),
			ShowLabel:      pct >= SliceLabelThreshold,
		})
	}
	return out
}

// NeighborhoodRow is a raw per-neighborhood aggregate.
type NeighborhoodRow struct {
	Neighborhood string
	Leads        int64
	Visits       int64
	AvgPrice     float64
}

// NeighborhoodBucket is a ranked neighborhood. Share is relative to the
// entries actually returned; Percentage is relative to every neighborhood.
type NeighborhoodBucket struct {
	Neighborhood string  `json:"neighborhood"`
	Count        int64   `json:"count"`
	Share        float64 `json:"share"`
	Percentage   float64 `json:"percentage"`
	Visits       int64   `json:"visits"`
	AvgPrice     float64 `json:"avg_price"`
}

// RankNeighborhoods returns at most NeighborhoodLimit neighborhoods sorted by
// lead count, descending, keeping input order among equal counts.
func RankNeighborhoods(rows []NeighborhoodRow) []NeighborhoodBucket {
	sorted := make([]NeighborhoodRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Leads > sorted[j].Leads })

	var grand int64
	for _, r := range sorted {
		grand += r.Leads
	}
	if len(sorted) > NeighborhoodLimit {
		sorted = sorted[:NeighborhoodLimit]
	}
	var top int64
	for _, r := range sorted {
		top += r.Leads
	}

	out := make([]NeighborhoodBucket, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, NeighborhoodBucket{
			Neighborhood: r.Neighborhood,
			Count:        r.Leads,
			Share:        percent(r.Leads, top, 2),
			Percentage:   percent(r.Leads, grand, 2),
			Visits:       r.Visits,
			AvgPrice:     round(r.AvgPrice, 2),
		})
	}
	return out
}
