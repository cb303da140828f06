// internal/relay/payload.go
package relay

import (
	"strings"

	"sells-service/internal/domain/lead"
)

// WebhookPayload is the body WAHA posts for every session event.
type WebhookPayload struct {
	Event   string         `json:"event"`
	Session string         `json:"session"`
	Payload MessagePayload `json:"payload"`
}

type MessagePayload struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	FromMe      bool   `json:"fromMe"`
	Participant string `json:"participant"`
	Body        string `json:"body"`
	Type        string `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	Data        struct {
		NotifyName string `json:"notifyName"`
	} `json:"_data"`
}

// Reasons reported for ignored webhook calls.
const (
	ReasonNotMessage  = "event_not_message"
	ReasonFromMe      = "from_me"
	ReasonNoSender    = "missing_sender"
	ReasonUnsupported = "unsupported_type"
	ReasonEmptyBody   = "empty_body"
	ReasonRateLimited = "rate_limited"
)

const defaultSession = "default"

// Inbound is a text message worth answering.
type Inbound struct {
	ChatID    string
	Phone     string
	Name      string
	Text      string
	Session   string
	MessageID string
	// Count is the number of WhatsApp messages joined into Text.
	Count int
}

// Extract pulls the inbound message out of p. When the call must be ignored
// it returns nil and the reason.
func Extract(p *WebhookPayload) (*Inbound, string) {
	if p.Event != "message" {
		return nil, ReasonNotMessage
	}

	m := p.Payload
	if m.FromMe {
		return nil, ReasonFromMe
	}
	if strings.TrimSpace(m.From) == "" {
		return nil, ReasonNoSender
	}
	switch m.Type {
	case "", "text", "chat":
	default:
		return nil, ReasonUnsupported
	}

	text := strings.TrimSpace(m.Body)
	if text == "" {
		return nil, ReasonEmptyBody
	}

	session := p.Session
	if session == "" {
		session = defaultSession
	}

	return &Inbound{
		ChatID:    m.From,
		Phone:     RealPhone(m.From, m.Participant),
		Name:      strings.TrimSpace(m.Data.NotifyName),
		Text:      text,
		Session:   session,
		MessageID: m.ID,
		Count:     1,
	}, ""
}

// RealPhone resolves the sender's phone number. Senders behind a linked id
// (@lid) carry their number in participant.
func RealPhone(from, participant string) string {
	raw := strings.TrimSuffix(from, "@c.us")
	if strings.HasSuffix(from, "@lid") {
		raw = strings.TrimSuffix(from, "@lid")
		if participant != "" {
			raw = strings.TrimSuffix(participant, "@c.us")
		}
	}
	return lead.NormalizePhone(raw)
}
