package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wstypes "sells-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type echoMetrics struct{}

func (echoMetrics) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeMetricsGet}
}

func (echoMetrics) HandleMessage(_ context.Context, c *Client, _ *wstypes.WSMessage) error {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeMetricsSnapshot, map[string]int{"total_leads": 3}))
	return nil
}

func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(zap.NewNop())
	hub.RegisterHandler(echoMetrics{})
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		client := NewClient(hub, conn, r.RemoteAddr)
		if !hub.Attach(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return hub, conn
}

func read(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, typ wstypes.EventType, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(wstypes.WSMessage{Type: typ, Data: data})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHubDeliversSubscribedChannels(t *testing.T) {
	hub, conn := startHub(t)

	if msg := read(t, conn); msg.Type != wstypes.EventTypeConnected {
		t.Fatalf("first message = %s, want connected", msg.Type)
	}

	send(t, conn, wstypes.EventTypeSubscribe, wstypes.SubscribeRequest{
		Channels: []wstypes.ChannelType{wstypes.ChannelLeads, "bogus"},
	})
	ack := read(t, conn)
	if ack.Type != wstypes.EventTypeSubscribe {
		t.Fatalf("ack = %s", ack.Type)
	}
	data := ack.Data.(map[string]interface{})
	if rejected := data["rejected"].([]interface{}); len(rejected) != 1 || rejected[0] != "bogus" {
		t.Errorf("rejected = %v", data["rejected"])
	}

	// not subscribed: dropped
	if err := hub.Publish(context.Background(), wstypes.NewEvent(wstypes.ChannelBrokers, wstypes.EventTypeBrokerUpdated, nil)); err != nil {
		t.Fatal(err)
	}
	if err := hub.Publish(context.Background(), wstypes.NewEvent(wstypes.ChannelLeads, wstypes.EventTypeLeadUpdated, wstypes.LeadEventData{LeadID: 9})); err != nil {
		t.Fatal(err)
	}

	if msg := read(t, conn); msg.Type != wstypes.EventTypeLeadUpdated {
		t.Errorf("got %s, want lead:updated", msg.Type)
	}
	if hub.TotalClients() != 1 {
		t.Errorf("clients = %d", hub.TotalClients())
	}
}

func TestHubRoutesRequestsToHandlers(t *testing.T) {
	_, conn := startHub(t)
	read(t, conn)

	send(t, conn, wstypes.EventTypeMetricsGet, nil)
	if msg := read(t, conn); msg.Type != wstypes.EventTypeMetricsSnapshot {
		t.Errorf("got %s, want metrics:snapshot", msg.Type)
	}

	send(t, conn, wstypes.EventTypePing, nil)
	if msg := read(t, conn); msg.Type != wstypes.EventTypePong {
		t.Errorf("got %s, want pong", msg.Type)
	}

	send(t, conn, "leads:delete", nil)
	if msg := read(t, conn); msg.Type != wstypes.EventTypeError {
		t.Errorf("got %s, want error", msg.Type)
	}
}

func TestPublishFullQueue(t *testing.T) {
	hub := NewHub(zap.NewNop())
	for i := 0; i < cap(hub.broadcast); i++ {
		if err := hub.Publish(context.Background(), wstypes.NewEvent(wstypes.ChannelSystem, wstypes.EventTypeSystemAlert, nil)); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	alert := &wstypes.SystemAlertData{Severity: "warning", Title: "t", Message: "m"}
	if err := hub.BroadcastSystemAlert(context.Background(), alert); err != ErrQueueFull {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}
