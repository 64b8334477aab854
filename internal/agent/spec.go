package agent

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Spec is the prompt/tool definition loaded from the agent YAML file.
type Spec struct {
	System string `yaml:"system"`
	Tool   struct {
		Name        string                 `yaml:"name"`
		Description string                 `yaml:"description"`
		Parameters  map[string]interface{} `yaml:"parameters"`
	} `yaml:"tool"`
	Style struct {
		Temperature   float32 `yaml:"temperature"`
		MaxTokens     int     `yaml:"max_tokens"`
		MaxIterations int     `yaml:"max_iterations"`
	} `yaml:"style"`
}

func LoadSpec(path string) (*Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec Spec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse agent spec: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return nil, fmt.Errorf("agent spec %s: system prompt is empty", path)
	}
	if strings.TrimSpace(spec.Tool.Name) == "" {
		return nil, fmt.Errorf("agent spec %s: tool name is empty", path)
	}
	if spec.Style.Temperature <= 0 {
		spec.Style.Temperature = 0.7
	}
	if spec.Style.MaxTokens <= 0 {
		spec.Style.MaxTokens = 600
	}
	if spec.Style.MaxIterations <= 0 {
		spec.Style.MaxIterations = 3
	}
	return &spec, nil
}

// SystemPrompt substitutes the current date into the system template so the
// model can resolve relative dates ("yesterday", "10 years ago") itself.
func (s *Spec) SystemPrompt(now time.Time) string {
	out := strings.ReplaceAll(s.System, "{{today}}", now.Format("2006-01-02"))
	return strings.ReplaceAll(out, "{{today_compact}}", now.Format("20060102"))
}
