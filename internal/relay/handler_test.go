package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	xerrors "sells-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newRouter(r *rig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(r.processor(Options{}, nil), r.stats, zap.NewNop()).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

const webhookPath = "/api/v1/whatsapp/webhook"

func TestWebhookStatuses(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		sendErr error
		code    int
		status  string
	}{
		{"empty body", "", nil, http.StatusBadRequest, ""},
		{"invalid json", "{", nil, http.StatusBadRequest, ""},
		{"ignored", `{"event":"session.status"}`, nil, http.StatusOK, StatusIgnored},
		{"processed", `{"event":"message","payload":{"from":"5585999990000@c.us","body":"oi"}}`, nil, http.StatusOK, StatusProcessed},
		{"send failure", `{"event":"message","payload":{"from":"5585999990000@c.us","body":"oi"}}`,
			&xerrors.TransportError{Op: "waha", Err: errors.New("down")}, http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			r.messenger.sendErr = tt.sendErr
			w := do(newRouter(r), http.MethodPost, webhookPath, tt.body)

			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.code, w.Body.String())
			}
			body := decode(t, w)
			if tt.status != "" && body["status"] != tt.status {
				t.Errorf("status = %v, want %s", body["status"], tt.status)
			}
			if tt.code != http.StatusOK && body["error"] == nil {
				t.Errorf("missing error in %v", body)
			}
		})
	}
}

func TestWebhookStoreFailureIs500(t *testing.T) {
	r := newRig()
	r.messages.appendErr = errors.New("db down")
	w := do(newRouter(r), http.MethodPost, webhookPath, `{"event":"message","payload":{"from":"1@c.us","body":"oi"}}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", w.Code)
	}
}

func TestVerifyHealthAndStats(t *testing.T) {
	r := newRig()
	router := newRouter(r)
	do(router, http.MethodPost, webhookPath, `{"event":"message","payload":{"fromMe":true}}`)

	if w := do(router, http.MethodGet, webhookPath, ""); decode(t, w)["status"] != "ok" {
		t.Errorf("verify = %s", w.Body.String())
	}

	health := decode(t, do(router, http.MethodGet, "/health", ""))
	if health["status"] != "healthy" || health["uptime_seconds"] == nil {
		t.Errorf("health = %v", health)
	}

	stats := decode(t, do(router, http.MethodGet, "/stats", ""))
	if stats["messages_received"] != float64(1) || stats["messages_ignored"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
	if _, ok := stats["server_started_at"].(string); !ok {
		t.Errorf("server_started_at = %v", stats["server_started_at"])
	}
}
