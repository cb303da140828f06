package cli

import (
	"fmt"
	"io"
	"strconv"

	"sells-service/internal/analytics"
	"sells-service/internal/client"

	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show the headline dashboard counters",
		Args:  cobra.NoArgs,
		RunE:  runMetrics,
	}
}

func runMetrics(cmd *cobra.Command, args []string) error {
	m, err := newAPIClient().Metrics(cmd.Context())
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), m)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Leads:       %d total, %d today\n", m.TotalLeads, m.LeadsToday)
	fmt.Fprintf(out, "Visits:      %d total\n", m.TotalVisits)
	fmt.Fprintf(out, "  pending    %d\n", m.PendingVisits)
	fmt.Fprintf(out, "  confirmed  %d\n", m.ConfirmedVisits)
	fmt.Fprintf(out, "  completed  %d\n", m.CompletedVisits)
	fmt.Fprintf(out, "  cancelled  %d\n", m.CancelledVisits)
	fmt.Fprintf(out, "Conversion:  %s\n", formatPercent(m.ConversionRate))
	return nil
}

func newAnalyticsCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show time series, funnel, sources and neighborhoods",
		Long:  "Fetch every analytics panel concurrently. A failing panel prints its error and the others still render.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client.NewViewState(period)
			if err != nil {
				return err
			}
			view, _ := client.NewAnalytics(newAPIClient()).Load(cmd.Context(), state)
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), viewJSON(view))
			}
			return printView(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVar(&period, "period", "7d", "time window (7d|30d|90d)")
	return cmd
}

// panelJSON keeps a failed panel visible in JSON output.
type panelJSON struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func panel[T any](p client.Panel[T]) panelJSON {
	if p.Err != nil {
		return panelJSON{Error: p.Err.Error()}
	}
	return panelJSON{Data: p.Data}
}

func viewJSON(v *client.AnalyticsView) map[string]interface{} {
	return map[string]interface{}{
		"period":        v.State.Period,
		"timeseries":    panel(v.TimeSeries),
		"funnel":        panel(v.Funnel),
		"sources":       panel(v.Sources),
		"neighborhoods": panel(v.Neighborhoods),
	}
}

func printView(out io.Writer, v *client.AnalyticsView) error {
	sections := []struct {
		title string
		err   error
		print func() error
	}{
		{"Leads and visits per day (" + string(v.State.Period) + ")", v.TimeSeries.Err, func() error { return printTimeSeries(out, v.TimeSeries.Data) }},
		{"Funnel", v.Funnel.Err, func() error { return printFunnel(out, v.Funnel.Data) }},
		{"Sources", v.Sources.Err, func() error { return printSources(out, v.Sources.Data) }},
		{"Neighborhoods", v.Neighborhoods.Err, func() error { return printNeighborhoods(out, v.Neighborhoods.Data) }},
	}

	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s\n", s.title)
		if s.err != nil {
			fmt.Fprintf(out, "  unavailable: %v\n", s.err)
			continue
		}
		if err := s.print(); err != nil {
			return err
		}
	}
	return nil
}

func printTimeSeries(out io.Writer, ts *analytics.TimeSeriesResponse) error {
	if len(ts.Data) == 0 {
		_, err := fmt.Fprintln(out, "No activity in this period.")
		return err
	}
	rows := make([][]string, 0, len(ts.Data))
	for _, p := range ts.Data {
		rows = append(rows, []string{p.Date, strconv.FormatInt(p.Leads, 10), strconv.FormatInt(p.Visits, 10)})
	}
	return table(out, []string{"DATE", "LEADS", "VISITS"}, rows)
}

func printFunnel(out io.Writer, f *analytics.FunnelResponse) error {
	rows := make([][]string, 0, len(f.Stages))
	for _, s := range f.Stages {
		conv := "-"
		if s.ConversionRate != nil {
			conv = formatPercent(*s.ConversionRate)
		}
		rows = append(rows, []string{s.Stage, strconv.FormatInt(s.Count, 10), formatPercent(s.Percentage), conv})
	}
	return table(out, []string{"STAGE", "COUNT", "OF TOTAL", "CONVERSION"}, rows)
}

func printSources(out io.Writer, s *analytics.SourcesResponse) error {
	rows := make([][]string, 0, len(s.Sources))
	for _, b := range s.Sources {
		rows = append(rows, []string{
			b.Label,
			strconv.FormatInt(b.Count, 10),
			formatPercent(b.Percentage),
			strconv.FormatInt(b.Visits, 10),
			formatPercent(b.ConversionRate),
		})
	}
	return table(out, []string{"SOURCE", "LEADS", "SHARE", "VISITS", "CONVERSION"}, rows)
}

func printNeighborhoods(out io.Writer, n *analytics.NeighborhoodsResponse) error {
	rows := make([][]string, 0, len(n.Neighborhoods))
	for _, b := range n.Neighborhoods {
		price := "-"
		if b.AvgPrice > 0 {
			price = formatPrice(b.AvgPrice)
		}
		rows = append(rows, []string{
			b.Neighborhood,
			strconv.FormatInt(b.Count, 10),
			formatPercent(b.Share),
			formatPercent(b.Percentage),
			strconv.FormatInt(b.Visits, 10),
			price,
		})
	}
	return table(out, []string{"NEIGHBORHOOD", "LEADS", "TOP 10", "OF TOTAL", "VISITS", "AVG PRICE"}, rows)
}
