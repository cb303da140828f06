package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"sells-service/internal/analytics"

	"gopkg.in/yaml.v3"
)

type funnelFile struct {
	Stages []analytics.StageDef `yaml:"stages"`
}

// LoadFunnelStages reads the ordered funnel stage list from a YAML file.
// A missing file yields analytics.DefaultStages.
func LoadFunnelStages(path string) ([]analytics.StageDef, error) {
	if path == "" {
		return analytics.DefaultStages, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return analytics.DefaultStages, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading funnel config: %w", err)
	}

	return ParseFunnelStages(data)
}

// ParseFunnelStages decodes a funnel YAML document.
func ParseFunnelStages(data []byte) ([]analytics.StageDef, error) {
	var f funnelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing funnel config: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("funnel config has no stages")
	}

	seen := make(map[string]bool, len(f.Stages))
	for i, s := range f.Stages {
		if s.Key == "" {
			return nil, fmt.Errorf("funnel stage %d has no key", i)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("funnel stage %q listed twice", s.Key)
		}
		seen[s.Key] = true
	}
	return f.Stages, nil
}
