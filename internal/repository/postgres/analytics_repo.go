// internal/repository/postgres/analytics_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"sells-service/internal/analytics"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsRepository reads the raw aggregates the analytics package ranks
// and summarises.
type AnalyticsRepository struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// MetricsSnapshot counts leads and visits. Leads created at or after
// todayStart count as today's.
func (r *AnalyticsRepository) MetricsSnapshot(ctx context.Context, todayStart time.Time) (analytics.MetricsSnapshot, error) {
	snap := analytics.MetricsSnapshot{
		LeadsByStatus:  map[string]int64{},
		VisitsByStatus: map[string]int64{},
	}

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1)
		FROM leads
	`, todayStart).Scan(&snap.TotalLeads, &snap.LeadsToday)
	if err != nil {
		return snap, fmt.Errorf("failed to count leads: %w", err)
	}

	if err := r.countBy(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`, snap.LeadsByStatus); err != nil {
		return snap, fmt.Errorf("failed to count leads by status: %w", err)
	}
	if err := r.countBy(ctx, `SELECT status, COUNT(*) FROM visits GROUP BY status`, snap.VisitsByStatus); err != nil {
		return snap, fmt.Errorf("failed to count visits by status: %w", err)
	}

	return snap, nil
}

// DailyCounts returns leads and visits created in [start, end) grouped by
// calendar day in loc, keyed by analytics.DateLayout.
func (r *AnalyticsRepository) DailyCounts(ctx context.Context, start, end time.Time, loc *time.Location) (map[string]int64, map[string]int64, error) {
	tz := loc.String()

	leads := map[string]int64{}
	err := r.countBy(ctx, `
		SELECT to_char(created_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM leads
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
	`, leads, start, end, tz)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count daily leads: %w", err)
	}

	visits := map[string]int64{}
	err = r.countBy(ctx, `
		SELECT to_char(created_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM visits
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
	`, visits, start, end, tz)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count daily visits: %w", err)
	}

	return leads, visits, nil
}

// FunnelCounts returns the count behind every built-in funnel stage key.
func (r *AnalyticsRepository) FunnelCounts(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM leads),
			(SELECT COUNT(*) FROM leads
			  WHERE contacted_at IS NOT NULL OR first_message_at IS NOT NULL OR status <> 'new'),
			(SELECT COUNT(*) FROM leads
			  WHERE status IN ('qualified', 'visit_scheduled', 'negotiating', 'converted')),
			(SELECT COUNT(DISTINCT lead_phone) FROM visits),
			(SELECT COUNT(DISTINCT lead_phone) FROM visits WHERE status = 'completed')
	`

	var landing, contacted, qualified, scheduled, completed int64
	if err := r.db.QueryRow(ctx, query).Scan(&landing, &contacted, &qualified, &scheduled, &completed); err != nil {
		return nil, fmt.Errorf("failed to count funnel: %w", err)
	}

	return map[string]int64{
		"landing_leads":   landing,
		"contacted":       contacted,
		"qualified":       qualified,
		"visit_scheduled": scheduled,
		"visit_completed": completed,
	}, nil
}

// SourceRows aggregates leads and their visits per source, ordered by source
func (r *AnalyticsRepository) SourceRows(ctx context.Context) ([]analytics.SourceRow, error) {
	query := `
		SELECT l.source, COUNT(DISTINCT l.id), COUNT(v.id)
		FROM leads l
		LEFT JOIN visits v ON v.lead_phone = l.phone
		GROUP BY l.source
		ORDER BY l.source ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sources: %w", err)
	}
	defer rows.Close()

	out := []analytics.SourceRow{}
	for rows.Next() {
		var s analytics.SourceRow
		if err := rows.Scan(&s.Source, &s.Leads, &s.Visits); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NeighborhoodRows aggregates leads per preferred neighborhood, ordered by
// name. A lead listing several neighborhoods counts once for each.
func (r *AnalyticsRepository) NeighborhoodRows(ctx context.Context) ([]analytics.NeighborhoodRow, error) {
	query := `
		WITH ln AS (
			SELECT l.id, l.phone, l.max_price, TRIM(n) AS neighborhood
			FROM leads l, unnest(l.neighborhoods) AS n
			WHERE TRIM(n) <> ''
		)
		SELECT ln.neighborhood,
		       COUNT(DISTINCT ln.id),
		       COUNT(v.id),
		       COALESCE(AVG(ln.max_price), 0)::float8
		FROM ln
		LEFT JOIN visits v ON v.lead_phone = ln.phone
		GROUP BY ln.neighborhood
		ORDER BY ln.neighborhood ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate neighborhoods: %w", err)
	}
	defer rows.Close()

	out := []analytics.NeighborhoodRow{}
	for rows.Next() {
		var n analytics.NeighborhoodRow
		if err := rows.Scan(&n.Neighborhood, &n.Leads, &n.Visits, &n.AvgPrice); err != nil {
			return nil, fmt.Errorf("failed to scan neighborhood: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// BrokerRows aggregates active brokers' visits created in [start, end).
// Brokers without visits in the window are included with zero counts.
func (r *AnalyticsRepository) BrokerRows(ctx context.Context, start, end time.Time) ([]analytics.BrokerRow, error) {
	query := `
		SELECT b.id, b.name,
		       COUNT(v.id) FILTER (WHERE v.status = 'completed'),
		       AVG(v.feedback_score)::float8
		FROM brokers b
		LEFT JOIN visits v
		       ON v.broker_id = b.id AND v.created_at >= $1 AND v.created_at < $2
		WHERE b.active
		GROUP BY b.id, b.name
		ORDER BY b.id ASC
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate brokers: %w", err)
	}
	defer rows.Close()

	out := []analytics.BrokerRow{}
	for rows.Next() {
		var b analytics.BrokerRow
		if err := rows.Scan(&b.ID, &b.Name, &b.CompletedVisits, &b.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan broker row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepository) countBy(ctx context.Context, query string, into map[string]int64, args ...interface{}) error {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
