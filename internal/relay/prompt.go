// internal/relay/prompt.go
package relay

import (
	"fmt"
	"strings"

	"sells-service/internal/domain/lead"
	"sells-service/internal/domain/visit"
)

const basePrompt = `Voce e um assistente imobiliario atendendo leads pelo WhatsApp.

REGRAS:
- Respostas CURTAS (2-3 frases)
- UMA pergunta por vez
- SEM EMOJIS
- NUNCA peca numero de WhatsApp

OBJETIVO: entender o que o lead procura (bairro, quartos, faixa de preco) e agendar uma visita.`

const landingPrompt = `Voce e um assistente imobiliario conversando com lead que veio de landing page.

CONTEXTO DO IMOVEL:
%s
REGRAS:
- Respostas CURTAS (2-3 frases)
- UMA pergunta por vez
- SEM EMOJIS
- NUNCA peca numero de WhatsApp

FLUXO:
1. Confirmar interesse no imovel especifico
2. Coletar nome (se nao tiver)
3. Oferecer visita: "Quando voce gostaria de visitar?"
4. Coletar data e horario
5. Confirmar agendamento

OBJETIVO: Agendar visita para o imovel da landing page.`

// SystemPrompt builds the assistant instructions for l. An open visit is
// mentioned so the assistant confirms it instead of offering new options.
func SystemPrompt(l *lead.Lead, active *visit.Visit) string {
	prompt := basePrompt
	if l != nil && l.PropertyTitle != nil {
		prompt = fmt.Sprintf(landingPrompt, propertyContext(l))
	}
	if active != nil {
		prompt += fmt.Sprintf(
			"\n\nVISITA JA AGENDADA para %s as %s (%s). NAO ofereca mais opcoes de imoveis; confirme a visita ja marcada.",
			active.ScheduledDate(), active.ScheduledTime(), active.PropertyTitle,
		)
	}
	return prompt
}

func propertyContext(l *lead.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Titulo: %s\n", *l.PropertyTitle)
	if p := l.Preferences.MaxPrice; p != nil {
		fmt.Fprintf(&b, "- Preco: R$ %.0f\n", *p)
	} else {
		b.WriteString("- Preco: Consultar\n")
	}
	if len(l.Preferences.Neighborhoods) > 0 {
		fmt.Fprintf(&b, "- Bairro: %s\n", l.Preferences.Neighborhoods[0])
	}
	if n := l.Preferences.Bedrooms; n != nil {
		fmt.Fprintf(&b, "- Quartos: %d\n", *n)
	}
	if a := l.PropertyArea; a != nil {
		fmt.Fprintf(&b, "- Area: %dm2\n", *a)
	}
	return b.String()
}
