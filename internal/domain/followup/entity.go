// internal/domain/followup/entity.go
package followup

import (
	"fmt"
	"time"
)

type Kind string

const (
	// KindLanding nudges a landing-page lead that never started a chat.
	KindLanding Kind = "landing"
	// KindCold re-engages a lead that stopped replying.
	KindCold Kind = "cold"
)

// LandingDelay is how long a landing-page lead gets before the first nudge.
const LandingDelay = 5 * time.Minute

// ColdTiers are the waits between successive cold-lead follow-ups.
var ColdTiers = []time.Duration{
	30 * time.Minute,
	2 * time.Hour,
	24 * time.Hour,
	72 * time.Hour,
	7 * 24 * time.Hour,
}

var coldMessages = []string{
	"Oi! Vi que voce ficou interessado em imoveis. Posso ajudar com mais informacoes ou agendar uma visita?",
	"Ola novamente! Ainda esta procurando imovel? Estou a disposicao para ajudar.",
	"Bom dia! Passando para saber se ainda tem interesse em encontrar seu imovel ideal.",
	"Oi! Faz alguns dias que conversamos. Surgiu algum imovel novo que pode te interessar. Quer ver?",
	"Ola! Ainda procurando imovel? Temos novas opcoes que podem combinar com voce.",
}

// ColdMessage returns the text sent at tier.
func ColdMessage(tier int) string {
	if tier < 0 || tier >= len(coldMessages) {
		return coldMessages[0]
	}
	return coldMessages[tier]
}

// LandingMessage builds the first nudge for a landing-page lead.
func LandingMessage(title string, bedrooms *int, area *int, neighborhood string) string {
	details := ""
	if bedrooms != nil && *bedrooms > 0 {
		details = fmt.Sprintf("\n\nEsse imovel tem %d quartos", *bedrooms)
		if area != nil && *area > 0 {
			details += fmt.Sprintf(", %dm2", *area)
		}
		if neighborhood != "" {
			details += ", localizado em " + neighborhood
		}
		details += "."
	}
	return fmt.Sprintf("Ola! Vi que voce demonstrou interesse no *%s*.%s\n\nPosso te ajudar a agendar uma visita?", title, details)
}

type Followup struct {
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	LeadID         *int64    `json:"lead_id" db:"lead_id"`
	ChatID         string    `json:"chat_id" db:"chat_id"`
	Session        string    `json:"session" db:"session"`
	Kind           Kind      `json:"kind" db:"kind"`
	Tier           int       `json:"tier" db:"tier"`
	DueAt          time.Time `json:"due_at" db:"due_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Next returns the follow-up that succeeds f after it has been sent at now,
// or false when the cold-lead tiers are exhausted.
func (f Followup) Next(now time.Time) (Followup, bool) {
	next := f
	switch f.Kind {
	case KindLanding:
		next.Kind = KindCold
		next.Tier = 0
	default:
		next.Tier = f.Tier + 1
	}
	if next.Tier >= len(ColdTiers) {
		return Followup{}, false
	}
	next.DueAt = now.Add(ColdTiers[next.Tier])
	return next, true
}
