// internal/service/analytics/analytics.go
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sells-service/internal/analytics"
	"sells-service/internal/pkg/cache"

	"go.uber.org/zap"
)

// Source reads raw aggregates from storage.
type Source interface {
	MetricsSnapshot(ctx context.Context, todayStart time.Time) (analytics.MetricsSnapshot, error)
	DailyCounts(ctx context.Context, start, end time.Time, loc *time.Location) (map[string]int64, map[string]int64, error)
	FunnelCounts(ctx context.Context) (map[string]int64, error)
	SourceRows(ctx context.Context) ([]analytics.SourceRow, error)
	NeighborhoodRows(ctx context.Context) ([]analytics.NeighborhoodRow, error)
}

// Cache holds computed responses for a short time.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type AnalyticsService struct {
	source Source
	cache  Cache
	ttl    time.Duration
	stages []analytics.StageDef
	loc    *time.Location
	logger *zap.Logger

	now func() time.Time
}

// NewAnalyticsService builds the service. cache may be nil to disable caching.
func NewAnalyticsService(source Source, c Cache, ttl time.Duration, stages []analytics.StageDef, loc *time.Location, logger *zap.Logger) *AnalyticsService {
	if len(stages) == 0 {
		stages = analytics.DefaultStages
	}
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{
		source: source,
		cache:  c,
		ttl:    ttl,
		stages: stages,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Metrics returns the dashboard's headline counters
func (s *AnalyticsService) Metrics(ctx context.Context) (analytics.Metrics, error) {
	todayStart := analytics.StartOfDay(s.now(), s.loc)
	return cached(ctx, s, "metrics:"+todayStart.Format(analytics.DateLayout), func() (analytics.Metrics, error) {
		snap, err := s.source.MetricsSnapshot(ctx, todayStart)
		if err != nil {
			return analytics.Metrics{}, fmt.Errorf("failed to load metrics: %w", err)
		}
		return analytics.Summarize(snap), nil
	})
}

// TimeSeries returns daily lead and visit counts. An empty period selects 7d.
func (s *AnalyticsService) TimeSeries(ctx context.Context, rawPeriod string) (*analytics.TimeSeriesResponse, error) {
	period, err := analytics.ParsePeriod(rawPeriod, analytics.Period7d)
	if err != nil {
		return nil, err
	}

	// the window moves at local midnight, so the day is part of the key
	now := s.now()
	key := "timeseries:" + string(period) + ":" + now.In(s.loc).Format(analytics.DateLayout)
	return cached(ctx, s, key, func() (*analytics.TimeSeriesResponse, error) {
		start, end := period.Window(now, s.loc)
		leads, visits, err := s.source.DailyCounts(ctx, start, end, s.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to load time series: %w", err)
		}
		return &analytics.TimeSeriesResponse{
			Period: period,
			Data:   analytics.BuildTimeSeries(period, now.In(s.loc), leads, visits),
		}, nil
	})
}

// Funnel returns the configured conversion funnel
func (s *AnalyticsService) Funnel(ctx context.Context) (*analytics.FunnelResponse, error) {
	return cached(ctx, s, "funnel", func() (*analytics.FunnelResponse, error) {
		counts, err := s.source.FunnelCounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load funnel: %w", err)
		}
		return &analytics.FunnelResponse{Stages: analytics.BuildFunnel(s.stages, counts)}, nil
	})
}

// Sources returns lead sources ranked by volume
func (s *AnalyticsService) Sources(ctx context.Context) (*analytics.SourcesResponse, error) {
	return cached(ctx, s, "sources", func() (*analytics.SourcesResponse, error) {
		rows, err := s.source.SourceRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sources: %w", err)
		}
		return &analytics.SourcesResponse{Sources: analytics.RankSources(rows)}, nil
	})
}

// Neighborhoods returns the most requested neighborhoods
func (s *AnalyticsService) Neighborhoods(ctx context.Context) (*analytics.NeighborhoodsResponse, error) {
	return cached(ctx, s, "neighborhoods", func() (*analytics.NeighborhoodsResponse, error) {
		rows, err := s.source.NeighborhoodRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load neighborhoods: %w", err)
		}
		return &analytics.NeighborhoodsResponse{Neighborhoods: analytics.RankNeighborhoods(rows)}, nil
	})
}

// cached serves key from the cache when possible. Cache failures are logged
// and fall through to load.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, load func() (T, error)) (T, error) {
	if s.cache == nil || s.ttl <= 0 {
		return load()
	}

	var v T
	err := s.cache.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
