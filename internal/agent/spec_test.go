package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSpec(t *testing.T) {
	path := writeSpecFile(t, `
system: |
  Today is {{today}} ({{today_compact}}).
tool:
  name: get_currency_rates
  description: Lookup rates.
  parameters:
    type: object
    properties:
      valcode:
        type: string
style:
  temperature: 0.4
  max_tokens: 200
  max_iterations: 2
`)
	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "get_currency_rates", spec.Tool.Name)
	assert.Equal(t, float32(0.4), spec.Style.Temperature)
	assert.Equal(t, 200, spec.Style.MaxTokens)
	assert.Equal(t, 2, spec.Style.MaxIterations)
	assert.Equal(t, "object", spec.Tool.Parameters["type"])
}

func TestLoadSpecDefaults(t *testing.T) {
	path := writeSpecFile(t, `
system: prompt
tool:
  name: get_currency_rates
`)
	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.7), spec.Style.Temperature)
	assert.Equal(t, 600, spec.Style.MaxTokens)
	assert.Equal(t, 3, spec.Style.MaxIterations)
}

func TestLoadSpecRejectsIncomplete(t *testing.T) {
	_, err := LoadSpec(writeSpecFile(t, `tool: {name: x}`))
	require.Error(t, err)

	_, err = LoadSpec(writeSpecFile(t, `system: prompt`))
	require.Error(t, err)

	_, err = LoadSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSystemPromptSubstitutesDate(t *testing.T) {
	spec := &Spec{System: "Today is {{today}} ({{today_compact}})."}
	now := time.Date(2025, 8, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today is 2025-08-04 (20250804).", spec.SystemPrompt(now))
}

func TestShippedSpecLoads(t *testing.T) {
	spec, err := LoadSpec(filepath.Join("..", "..", "prompts", "agent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "get_currency_rates", spec.Tool.Name)
	assert.Contains(t, spec.System, "{{today}}")
	assert.Equal(t, 3, spec.Style.MaxIterations)
}
