package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xA-10/lilypad/pkg/lilypad/config"
	"github.com/0xA-10/lilypad/pkg/lilypad/presets"
)

const presetYAML = `
name: market-brief
preset: TRIAGE_CONDUCT
contract_check: true
initial:
  topic: rate cuts
steps:
  - brick: prompt
    options:
      template: "Draft notes on ${topic}"
  - brick: llm
    name: summarize
    options:
      model: gpt-4o
      max_tokens: 512
  - brick: lines
`

func TestFromYAML_Preset(t *testing.T) {
	def, err := config.FromYAML([]byte(presetYAML))
	require.NoError(t, err)
	require.NoError(t, def.Validate())

	assert.Equal(t, "market-brief", def.Name)
	assert.True(t, def.ContractCheck)
	assert.Equal(t, map[string]any{"topic": "rate cuts"}, def.Initial)
	require.Len(t, def.Steps, 3)
	assert.Equal(t, "summarize", def.Steps[1].Name)

	opts := config.NewOptions(def.Steps[1].Options)
	assert.Equal(t, "gpt-4o", opts.String("model", ""))
	assert.Equal(t, 512, opts.Int("max_tokens", 0))

	pattern, err := def.ResolvePattern()
	require.NoError(t, err)
	assert.Equal(t, presets.TriageConduct, pattern)
}

func TestFromJSON_StepSymbols(t *testing.T) {
	def, err := config.FromJSON([]byte(`{
		"name": "inline",
		"steps": [
			{"brick": "inject", "symbol": "D", "options": {"key": "prompt", "value": "HELLOWORLD"}},
			{"trim": 5},
			{"brick": "llm", "symbol": "M(claude-3-7-sonnet-20250219)"}
		]
	}`))
	require.NoError(t, err)
	require.NoError(t, def.Validate())

	pattern, err := def.ResolvePattern()
	require.NoError(t, err)
	assert.Equal(t, "D T5 M(claude-3-7-sonnet-20250219)", pattern)

	bricks := def.Bricks()
	require.Len(t, bricks, 2)
	assert.Equal(t, "inject", bricks[0].Brick)
	assert.Equal(t, "llm", bricks[1].Brick)
	assert.True(t, def.Steps[1].IsTrim())
}

func TestFromYAML_UnknownKeyRejected(t *testing.T) {
	_, err := config.FromYAML([]byte("name: x\npatern: D\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patern")
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := config.FromYAML([]byte("invalid: yaml: content:"))
	assert.Error(t, err)

	_, err = config.FromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestFromYAML_Empty(t *testing.T) {
	def, err := config.FromYAML(nil)
	require.NoError(t, err)
	assert.ErrorIs(t, def.Validate(), config.ErrInvalidDefinition)
}

func TestValidate(t *testing.T) {
	brick := config.StepDef{Brick: "llm"}

	tests := []struct {
		name    string
		def     config.Definition
		wantErr string
	}{
		{
			name: "valid pattern",
			def:  config.Definition{Pattern: "D T5 S", Steps: []config.StepDef{brick, brick}},
		},
		{
			name:    "no steps",
			def:     config.Definition{Pattern: "D"},
			wantErr: "no steps",
		},
		{
			name:    "pattern and preset",
			def:     config.Definition{Pattern: "D", Preset: "BRIEF", Steps: []config.StepDef{brick}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown preset",
			def:     config.Definition{Preset: "WALTZ", Steps: []config.StepDef{brick}},
			wantErr: "unknown preset",
		},
		{
			name:    "slot mismatch",
			def:     config.Definition{Pattern: "D T5 S", Steps: []config.StepDef{brick}},
			wantErr: "2 slots but 1 brick steps",
		},
		{
			name:    "bad pattern",
			def:     config.Definition{Pattern: "D T0", Steps: []config.StepDef{brick}},
			wantErr: "T0",
		},
		{
			name:    "missing brick",
			def:     config.Definition{Pattern: "D", Steps: []config.StepDef{{Name: "x"}}},
			wantErr: "brick is required",
		},
		{
			name:    "trim alongside pattern",
			def:     config.Definition{Pattern: "D", Steps: []config.StepDef{brick, {Trim: 5}}},
			wantErr: "trim steps belong in the pattern",
		},
		{
			name:    "trim with brick",
			def:     config.Definition{Steps: []config.StepDef{{Brick: "llm", Symbol: "S", Trim: 5}}},
			wantErr: "either a trim or a brick",
		},
		{
			name:    "negative trim",
			def:     config.Definition{Steps: []config.StepDef{{Trim: -1}}},
			wantErr: "must be positive",
		},
		{
			name:    "missing symbol",
			def:     config.Definition{Steps: []config.StepDef{brick}},
			wantErr: "symbol is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalidDefinition)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	def := config.Definition{
		Pattern: "D",
		Preset:  "BRIEF",
		Steps:   []config.StepDef{{}, {Trim: 3}},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
	assert.Contains(t, err.Error(), "step 0: brick is required")
	assert.Contains(t, err.Error(), "step 1: trim steps")
}

func TestFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	yamlPath := filepath.Join(tmpDir, "pipeline.YML")
	require.NoError(t, os.WriteFile(yamlPath, []byte(presetYAML), 0o644))

	jsonPath := filepath.Join(tmpDir, "pipeline.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"j","pattern":"D","steps":[{"brick":"fresh"}]}`), 0o644))

	txtPath := filepath.Join(tmpDir, "pipeline.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))

	tests := []struct {
		name     string
		path     string
		wantName string
		errMsg   string
	}{
		{"yaml, case-insensitive extension", yamlPath, "market-brief", ""},
		{"json", jsonPath, "j", ""},
		{"unsupported extension", txtPath, "", "unsupported definition file extension"},
		{"not found", filepath.Join(tmpDir, "nope.yaml"), "", "read definition file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := config.FromFile(tt.path)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, def.Name)
		})
	}
}
