package analytics

var leadStatusLabels = map[string]string{
	"new":             "Novo",
	"qualified":       "Qualificado",
	"visit_scheduled": "Visita Agendada",
	"negotiating":     "Em Negociação",
	"converted":       "Convertido",
	"lost":            "Perdido",
}

var visitStatusLabels = map[string]string{
	"pending":   "Pendente",
	"confirmed": "Confirmada",
	"completed": "Realizada",
	"cancelled": "Cancelada",
}

var sourceLabels = map[string]string{
	"whatsapp":  "WhatsApp",
	"landing":   "Landing Page",
	"website":   "Website",
	"facebook":  "Facebook",
	"instagram": "Instagram",
	"google":    "Google",
	"referral":  "Indicação",
	"other":     "Outros",
	"unknown":   "Desconhecido",
}

var stageLabels = map[string]string{}

func init() {
	for _, s := range DefaultStages {
		stageLabels[s.Key] = s.Label
	}
}

// LeadStatusLabel returns the display label for a lead status, or the raw
// value when it is not a known status.
func LeadStatusLabel(status string) string {
	return lookup(leadStatusLabels, status)
}

// VisitStatusLabel returns the display label for a visit status.
func VisitStatusLabel(status string) string {
	return lookup(visitStatusLabels, status)
}

// SourceLabel returns the display label for a lead source.
func SourceLabel(source string) string {
	return lookup(sourceLabels, source)
}

// StageLabel prefers the configured label, then the built-in one, then the key.
func StageLabel(def StageDef) string {
	if def.Label != "" {
		return def.Label
	}
	return lookup(stageLabels, def.Key)
}

func lookup(m map[string]string, key string) string {
	if label, ok := m[key]; ok {
		return label
	}
	return key
}
