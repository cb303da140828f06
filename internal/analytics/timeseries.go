package analytics

import "time"

// DateLayout is the wire format of a time-series day.
const DateLayout = "2006-01-02"

// Point is one day of activity.
type Point struct {
	Date   string `json:"date"`
	Leads  int64  `json:"leads"`
	Visits int64  `json:"visits"`
}

// BuildTimeSeries returns one point per calendar day of the period, ending
// with today, oldest first. Days missing from the raw maps are zero-filled.
// When the window holds no activity at all the result is empty.
//
// The raw maps are keyed by DateLayout.
func BuildTimeSeries(p Period, today time.Time, leads, visits map[string]int64) []Point {
	days := p.Days()
	points := make([]Point, 0, days)
	if days == 0 {
		return points
	}

	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	active := false
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(DateLayout)
		pt := Point{Date: key, Leads: leads[key], Visits: visits[key]}
		if pt.Leads != 0 || pt.Visits != 0 {
			active = true
		}
		points = append(points, pt)
	}

	if !active {
		return points[:0]
	}
	return points
}
