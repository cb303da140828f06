package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// fakeAPI serves canned envelopes keyed by "METHOD path".
func fakeAPI(t *testing.T, routes map[string]string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SELLS_API_URL", "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.Method+" "+r.URL.Path]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"success":false,"error":"resource not found"}`)
			return
		}
		if strings.HasPrefix(body, "!") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1/dashboard"
}

func TestRootHelp(t *testing.T) {
	if _, err := executeCommand("--help"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil || formatFlag.DefValue != "text" {
		t.Fatalf("format flag = %+v", formatFlag)
	}
	if root.PersistentFlags().Lookup("api-url") == nil {
		t.Fatal("expected --api-url flag to exist")
	}
}

func TestMetricsCommand(t *testing.T) {
	url := fakeAPI(t, map[string]string{
		"GET /api/v1/dashboard/metrics": `{"success":true,"data":{"total_leads":40,"leads_today":3,"total_visits":12,"completed_visits":5,"conversion_rate":12.5}}`,
	})

	out, err := executeCommand("--api-url", url, "metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	for _, want := range []string{"40 total, 3 today", "completed  5", "12.5%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyticsCommandKeepsGoingWhenAPanelFails(t *testing.T) {
	days := strings.TrimSuffix(strings.Repeat(`{"date":"2025-03-01","leads":2,"visits":1},`, 7), ",")
	url := fakeAPI(t, map[string]string{
		"GET /api/v1/dashboard/analytics/timeseries":    `{"success":true,"data":{"period":"7d","data":[` + days + `]}}`,
		"GET /api/v1/dashboard/analytics/funnel":        `{"success":true,"data":{"stages":[{"key":"landing_leads","stage":"Leads","count":100,"percentage":100},{"key":"contacted","stage":"Contatados","count":60,"percentage":60,"conversion_rate":60}]}}`,
		"GET /api/v1/dashboard/analytics/sources":       "!",
		"GET /api/v1/dashboard/analytics/neighborhoods": `{"success":true,"data":{"neighborhoods":[{"neighborhood":"Aldeota","count":7,"share":100,"percentage":70,"visits":2,"avg_price":450000}]}}`,
	})

	out, err := executeCommand("--api-url", url, "analytics", "--period", "7d")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	for _, want := range []string{"Contatados", "60.0%", "unavailable", "Aldeota", "R$ 450.000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyticsRejectsUnknownPeriod(t *testing.T) {
	url := fakeAPI(t, nil)
	if _, err := executeCommand("--api-url", url, "analytics", "--period", "1y"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLeadShowNotFound(t *testing.T) {
	url := fakeAPI(t, nil)
	_, err := executeCommand("--api-url", url, "leads", "show", "99")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestBrokersAddRequiresPhone(t *testing.T) {
	url := fakeAPI(t, nil)
	_, err := executeCommand("--api-url", url, "brokers", "add", "--name", "Carlos")
	if err == nil || !strings.Contains(err.Error(), "phone") {
		t.Fatalf("err = %v", err)
	}
}

func TestRankingJSON(t *testing.T) {
	url := fakeAPI(t, map[string]string{
		"GET /api/v1/dashboard/brokers/ranking": `{"success":true,"data":{"period":"30d","data":[{"rank":1,"id":2,"name":"Carlos","completed_visits":4,"avg_feedback_score":4.5}]}}`,
	})

	out, err := executeCommand("--api-url", url, "--format", "json", "brokers", "ranking")
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if !strings.Contains(out, `"avg_feedback_score": 4.5`) {
		t.Errorf("output:\n%s", out)
	}
}
