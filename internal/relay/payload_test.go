package relay

import "testing"

func TestExtract(t *testing.T) {
	msg := func(mut func(*WebhookPayload)) *WebhookPayload {
		p := &WebhookPayload{
			Event:   "message",
			Session: "vendas",
			Payload: MessagePayload{ID: "m1", From: "5585999990000@c.us", Body: " Oi ", Type: "chat"},
		}
		if mut != nil {
			mut(p)
		}
		return p
	}

	tests := []struct {
		name   string
		in     *WebhookPayload
		reason string
	}{
		{"other event", msg(func(p *WebhookPayload) { p.Event = "message.any" }), ReasonNotMessage},
		{"from me", msg(func(p *WebhookPayload) { p.Payload.FromMe = true }), ReasonFromMe},
		{"no sender", msg(func(p *WebhookPayload) { p.Payload.From = "" }), ReasonNoSender},
		{"image", msg(func(p *WebhookPayload) { p.Payload.Type = "image" }), ReasonUnsupported},
		{"blank body", msg(func(p *WebhookPayload) { p.Payload.Body = "   " }), ReasonEmptyBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, reason := Extract(tt.in)
			if in != nil || reason != tt.reason {
				t.Errorf("Extract = %v, %q; want nil, %q", in, reason, tt.reason)
			}
		})
	}

	in, reason := Extract(msg(nil))
	if reason != "" {
		t.Fatalf("reason = %q", reason)
	}
	if in.Text != "Oi" || in.Phone != "5585999990000" || in.Session != "vendas" || in.Count != 1 {
		t.Errorf("inbound = %+v", in)
	}

	in, _ = Extract(msg(func(p *WebhookPayload) { p.Session = "" }))
	if in.Session != "default" {
		t.Errorf("session = %q, want default", in.Session)
	}
}

func TestRealPhone(t *testing.T) {
	tests := []struct {
		from, participant, want string
	}{
		{"5585999990000@c.us", "", "5585999990000"},
		{"123456@lid", "5585988887777@c.us", "5585988887777"},
		{"5585977776666@lid", "", "5585977776666"},
		{"85999990000@c.us", "", "5585999990000"},
	}
	for _, tt := range tests {
		if got := RealPhone(tt.from, tt.participant); got != tt.want {
			t.Errorf("RealPhone(%q, %q) = %q, want %q", tt.from, tt.participant, got, tt.want)
		}
	}
}
