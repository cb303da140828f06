package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigRoundTripAndPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SELLS_API_URL", "")
	flagAPIURL = ""

	if got := getAPIURL(); got != defaultAPIURL {
		t.Fatalf("default url = %q", got)
	}

	if _, err := executeCommand("config", "set-url", "https://crm.example.com/api/v1/dashboard/", "--timeout", "5s"); err != nil {
		t.Fatalf("set-url: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, ".sells", "config.yaml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "api_url: https://crm.example.com/api/v1/dashboard") {
		t.Errorf("config:\n%s", data)
	}

	cfg, err := loadConfig()
	if err != nil || cfg.Timeout != 5*time.Second {
		t.Fatalf("loadConfig = %+v, %v", cfg, err)
	}
	if got := getAPIURL(); got != "https://crm.example.com/api/v1/dashboard" {
		t.Errorf("config url = %q", got)
	}

	t.Setenv("SELLS_API_URL", "http://env:8000")
	if got := getAPIURL(); got != "http://env:8000" {
		t.Errorf("env url = %q", got)
	}
}

func TestSetURLRejectsBareHost(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := executeCommand("config", "set-url", "localhost:8000"); err == nil {
		t.Fatal("expected error")
	}
}
