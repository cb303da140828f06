// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Dashboard events (server -> client)
	EventTypeLeadUpdated         EventType = "lead:updated"
	EventTypeLeadCreated         EventType = "lead:created"
	EventTypeVisitUpdated        EventType = "visit:updated"
	EventTypeBrokerUpdated       EventType = "broker:updated"
	EventTypeConversationMessage EventType = "conversation:message"
	EventTypeMetricsStale        EventType = "metrics:stale"
	EventTypeMetricsSnapshot     EventType = "metrics:snapshot"

	// Dashboard requests (client -> server)
	EventTypeMetricsGet EventType = "metrics:get"

	// System events
	EventTypeSystemAlert EventType = "system:alert"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelLeads         ChannelType = "leads"
	ChannelVisits        ChannelType = "visits"
	ChannelBrokers       ChannelType = "brokers"
	ChannelConversations ChannelType = "conversations"
	ChannelMetrics       ChannelType = "metrics"
	ChannelSystem        ChannelType = "system"
)

// DefaultChannels are subscribed on connect.
var DefaultChannels = []ChannelType{ChannelMetrics, ChannelSystem}

func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelLeads, ChannelVisits, ChannelBrokers, ChannelConversations, ChannelMetrics, ChannelSystem:
		return true
	}
	return false
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type LeadEventData struct {
	LeadID int64  `json:"lead_id"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status"`
	Source string `json:"source,omitempty"`
}

type VisitEventData struct {
	VisitUUID     string `json:"visit_uuid"`
	Status        string `json:"status"`
	BrokerID      *int64 `json:"broker_id,omitempty"`
	FeedbackScore *int   `json:"feedback_score,omitempty"`
}

type BrokerEventData struct {
	BrokerID int64  `json:"broker_id"`
	Status   string `json:"status"`
	Action   string `json:"action"` // created, updated, deactivated
}

type ConversationEventData struct {
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Preview        string `json:"preview"`
	Intent         string `json:"intent,omitempty"`
}

// SystemAlertData for system-wide alerts
type SystemAlertData struct {
	Severity string `json:"severity"` // info, warning, critical
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Event pairs a message with the channel it is published on. It is the unit
// carried between processes over Redis pub/sub.
type Event struct {
	Channel ChannelType `json:"channel"`
	Message *WSMessage  `json:"message"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

// NewEvent builds an Event with a fresh message.
func NewEvent(channel ChannelType, eventType EventType, data interface{}) *Event {
	return &Event{Channel: channel, Message: NewMessage(eventType, data)}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
