package analytics

// StageDef names one step of the conversion pipeline. Order is given by the
// position in the slice passed to BuildFunnel.
type StageDef struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// DefaultStages is used when no funnel configuration is supplied.
var DefaultStages = []StageDef{
	{Key: "landing_leads", Label: "Leads Captados"},
	{Key: "contacted", Label: "Contatados"},
	{Key: "qualified", Label: "Qualificados"},
	{Key: "visit_scheduled", Label: "Visita Agendada"},
	{Key: "visit_completed", Label: "Convertidos"},
}

// FunnelStage is one computed stage.
type FunnelStage struct {
	Key            string   `json:"key"`
	Stage          string   `json:"stage"`
	Count          int64    `json:"count"`
	Percentage     float64  `json:"percentage"`
	ConversionRate *float64 `json:"conversion_rate,omitempty"`
}

// BuildFunnel computes, for each stage in order, its share of the first
// stage and its conversion from the previous stage. A previous count of zero
// yields a conversion rate of 0. Stages missing from counts count as zero.
func BuildFunnel(stages []StageDef, counts map[string]int64) []FunnelStage {
	out := make([]FunnelStage, 0, len(stages))
	if len(stages) == 0 {
		return out
	}

	top := counts[stages[0].Key]
	for i, def := range stages {
		n := counts[def.Key]
		fs := FunnelStage{
			Key:        def.Key,
			Stage:      StageLabel(def),
			Count:      n,
			Percentage: percent(n, top, 1),
		}
		if i > 0 {
			rate := percent(n, counts[stages[i-1].Key], 1)
			fs.ConversionRate = &rate
		}
		out = append(out, fs)
	}
	return out
}
