package client

import (
	"context"
	"sync"

	"sells-service/internal/analytics"

	"golang.org/x/sync/errgroup"
)

// ViewState is the immutable selection an analytics view is rendered for.
type ViewState struct {
	Period analytics.Period
}

// NewViewState validates raw, defaulting to 7 days.
func NewViewState(raw string) (ViewState, error) {
	p, err := analytics.ParsePeriod(raw, analytics.Period7d)
	if err != nil {
		return ViewState{}, err
	}
	return ViewState{Period: p}, nil
}

// Panel is one independently loaded part of a view.
type Panel[T any] struct {
	Data T
	Err  error
}

func (p Panel[T]) OK() bool { return p.Err == nil }

// AnalyticsView is a snapshot of every analytics panel for one ViewState.
type AnalyticsView struct {
	State         ViewState
	TimeSeries    Panel[*analytics.TimeSeriesResponse]
	Funnel        Panel[*analytics.FunnelResponse]
	Sources       Panel[*analytics.SourcesResponse]
	Neighborhoods Panel[*analytics.NeighborhoodsResponse]
}

// PanelFetcher loads the analytics panels. *Client implements it.
type PanelFetcher interface {
	TimeSeries(ctx context.Context, period string) (*analytics.TimeSeriesResponse, error)
	Funnel(ctx context.Context) (*analytics.FunnelResponse, error)
	Sources(ctx context.Context) (*analytics.SourcesResponse, error)
	Neighborhoods(ctx context.Context) (*analytics.NeighborhoodsResponse, error)
}

// Analytics loads the analytics view and keeps the newest completed one.
type Analytics struct {
	fetcher PanelFetcher
	seq     Sequencer

	mu      sync.RWMutex
	current *AnalyticsView
}

func NewAnalytics(fetcher PanelFetcher) *Analytics {
	return &Analytics{fetcher: fetcher}
}

// Load fetches all panels for state concurrently. A failing panel carries its
// own error and leaves its siblings alone. The returned bool is false when a
// newer Load started meanwhile; the view is then discarded instead of
// becoming current.
func (a *Analytics) Load(ctx context.Context, state ViewState) (*AnalyticsView, bool) {
	ctx, ticket := a.seq.Begin(ctx)
	view := &AnalyticsView{State: state}

	var g errgroup.Group
	g.Go(func() error {
		view.TimeSeries.Data, view.TimeSeries.Err = a.fetcher.TimeSeries(ctx, string(state.Period))
		return nil
	})
	g.Go(func() error {
		view.Funnel.Data, view.Funnel.Err = a.fetcher.Funnel(ctx)
		return nil
	})
	g.Go(func() error {
		view.Sources.Data, view.Sources.Err = a.fetcher.Sources(ctx)
		return nil
	})
	g.Go(func() error {
		view.Neighborhoods.Data, view.Neighborhoods.Err = a.fetcher.Neighborhoods(ctx)
		return nil
	})
	_ = g.Wait()

	committed := a.seq.Commit(ticket, func() {
		a.mu.Lock()
		a.current = view
		a.mu.Unlock()
	})
	return view, committed
}

// Current returns the newest committed view, or nil before the first load.
func (a *Analytics) Current() *AnalyticsView {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}
