package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

// snapshot rebuilds the same raw data from scratch, filling maps in the
// given key order so that map iteration order cannot leak into the output.
type snapshot struct {
	metrics       MetricsSnapshot
	leadsByDay    map[string]int64
	visitsByDay   map[string]int64
	funnel        map[string]int64
	sources       []SourceRow
	neighborhoods []NeighborhoodRow
	brokers       []BrokerRow
}

func buildSnapshot(reverse bool) snapshot {
	fill := func(pairs [][2]any) map[string]int64 {
		m := map[string]int64{}
		for i := range pairs {
			p := pairs[i]
			if reverse {
				p = pairs[len(pairs)-1-i]
			}
			m[p[0].(string)] = int64(p[1].(int))
		}
		return m
	}

	score := 4.5
	s := snapshot{
		metrics: MetricsSnapshot{
			TotalLeads: 120,
			LeadsToday: 7,
			LeadsByStatus: fill([][2]any{
				{"new", 40}, {"qualified", 30}, {"visit_scheduled", 20}, {"negotiating", 15}, {"converted", 10}, {"lost", 5},
			}),
			VisitsByStatus: fill([][2]any{
				{"pending", 9}, {"confirmed", 6}, {"completed", 13}, {"cancelled", 2},
			}),
		},
		leadsByDay:  fill([][2]any{{"2025-03-04", 3}, {"2025-03-06", 1}, {"2025-03-10", 5}}),
		visitsByDay: fill([][2]any{{"2025-03-05", 2}, {"2025-03-10", 1}}),
		funnel: fill([][2]any{
			{"landing_leads", 100}, {"contacted", 60}, {"qualified", 30}, {"visit_scheduled", 10}, {"visit_completed", 2},
		}),
		sources: []SourceRow{
			{Source: "facebook", Leads: 30, Visits: 3},
			{Source: "instagram", Leads: 30, Visits: 1},
			{Source: "landing", Leads: 50, Visits: 8},
			{Source: "whatsapp", Leads: 2},
		},
		brokers: []BrokerRow{
			{ID: 2, Name: "Bruno", CompletedVisits: 4, AvgScore: &score},
			{ID: 1, Name: "Ana", CompletedVisits: 4, AvgScore: &score},
			{ID: 3, Name: "Carla", CompletedVisits: 1},
		},
	}
	for i := 0; i < 13; i++ {
		s.neighborhoods = append(s.neighborhoods, NeighborhoodRow{
			Neighborhood: fmt.Sprintf("Bairro %02d", i),
			Leads:        int64(20 - i%4),
			Visits:       int64(i % 3),
			AvgPrice:     350000 + float64(i)*12500,
		})
	}
	return s
}

func renderAll(t *testing.T, s snapshot) map[string][]byte {
	t.Helper()
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	outputs := map[string]any{
		"metrics":       Summarize(s.metrics),
		"timeseries":    TimeSeriesResponse{Period: Period7d, Data: BuildTimeSeries(Period7d, today, s.leadsByDay, s.visitsByDay)},
		"funnel":        FunnelResponse{Stages: BuildFunnel(DefaultStages, s.funnel)},
		"sources":       SourcesResponse{Sources: RankSources(s.sources)},
		"neighborhoods": NeighborhoodsResponse{Neighborhoods: RankNeighborhoods(s.neighborhoods)},
		"brokers":       RankBrokers(s.brokers),
	}

	rendered := map[string][]byte{}
	for name, v := range outputs {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		rendered[name] = data
	}
	return rendered
}

func TestSameSnapshotRendersIdenticalBytes(t *testing.T) {
	first := renderAll(t, buildSnapshot(false))
	second := renderAll(t, buildSnapshot(false))
	reordered := renderAll(t, buildSnapshot(true))

	for name, want := range first {
		if !bytes.Equal(second[name], want) {
			t.Errorf("%s differs between identical snapshots:\n%s\n%s", name, want, second[name])
		}
		if !bytes.Equal(reordered[name], want) {
			t.Errorf("%s depends on map fill order:\n%s\n%s", name, want, reordered[name])
		}
	}

	var n NeighborhoodsResponse
	if err := json.Unmarshal(first["neighborhoods"], &n); err != nil {
		t.Fatal(err)
	}
	if len(n.Neighborhoods) != NeighborhoodLimit {
		t.Errorf("neighborhoods = %d, want %d", len(n.Neighborhoods), NeighborhoodLimit)
	}
}
