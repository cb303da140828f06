// Package analytics turns raw lead, visit and broker aggregates into the
// chart-ready shapes served by the dashboard. Every function here is a pure
// transform over its inputs.
package analytics

import (
	"fmt"
	"math"
	"time"

	xerrors "sells-service/internal/pkg/errors"
)

// Period is a selectable reporting window.
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
)

var periodDays = map[Period]int{
	Period7d:  7,
	Period30d: 30,
	Period90d: 90,
}

// ParsePeriod validates raw against the fixed enumeration. An empty value
// selects def.
func ParsePeriod(raw string, def Period) (Period, error) {
	if raw == "" {
		return def, nil
	}
	p := Period(raw)
	if _, ok := periodDays[p]; !ok {
		return "", xerrors.Invalid("period", fmt.Sprintf("must be one of 7d, 30d, 90d (got %q)", raw))
	}
	return p, nil
}

// Days returns the number of calendar days covered by p, or 0 if p is unknown.
func (p Period) Days() int {
	return periodDays[p]
}

// Window returns the half-open range [start, end) of the calendar days covered
// by p, ending with the day containing now in loc.
func (p Period) Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	end := StartOfDay(now, loc).AddDate(0, 0, 1)
	return end.AddDate(0, 0, -p.Days()), end
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// percent returns part/whole*100 rounded to the given number of decimals,
// or 0 when whole is zero.
func percent(part, whole int64, decimals int) float64 {
	if whole == 0 {
		return 0
	}
	return round(float64(part)/float64(whole)*100, decimals)
}

func round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
