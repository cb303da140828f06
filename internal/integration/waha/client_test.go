package waha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "sells-service/internal/pkg/errors"
)

func TestSendText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sendText" {
			t.Errorf("path = %q, want /api/sendText", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("X-Api-Key = %q", r.Header.Get("X-Api-Key"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["session"] != "default" || body["chatId"] != "5585@c.us" || body["text"] != "oi" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	if err := c.SendText(context.Background(), "default", "5585@c.us", "oi"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
}

func TestPresencePaths(t *testing.T) {
	var paths []string
	var presences []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		presences = append(presences, body["presence"])
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	ctx := context.Background()
	if err := c.SendSeen(ctx, "s1", "x@c.us"); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTyping(ctx, "s1", "x@c.us"); err != nil {
		t.Fatal(err)
	}
	if err := c.StopTyping(ctx, "s1", "x@c.us"); err != nil {
		t.Fatal(err)
	}

	want := []string{"/api/s1/sendSeen", "/api/s1/presence", "/api/s1/presence"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
	if presences[1] != "typing" || presences[2] != "paused" {
		t.Errorf("presences = %v", presences)
	}
}

func TestErrorsAreTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not found", http.StatusNotFound)
	}))
	c := New(srv.URL, "")

	err := c.SendText(context.Background(), "default", "x", "y")
	if !errors.Is(err, xerrors.ErrTransport) {
		t.Errorf("status error = %v, want transport error", err)
	}

	srv.Close()
	err = c.SendText(context.Background(), "default", "x", "y")
	if !errors.Is(err, xerrors.ErrTransport) {
		t.Errorf("network error = %v, want transport error", err)
	}
}
