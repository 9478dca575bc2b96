package bricks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/config"
	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
	"github.com/0xA-10/lilypad/pkg/lilypad/llm"
	"github.com/0xA-10/lilypad/pkg/lilypad/template"
)

func build(t *testing.T, step config.StepDef, deps Deps) lilypad.Segment {
	t.Helper()
	seg, err := Default().Build(step, deps)
	require.NoError(t, err)
	return seg
}

func TestInjectBrick(t *testing.T) {
	seg := build(t, config.StepDef{Brick: "inject", Options: map[string]any{"key": "topic", "value": "tides"}}, Deps{})
	assert.Equal(t, "inject:topic", seg.Name())
	assert.Equal(t, []string{"topic"}, seg.DeclaredWrites())

	out, err := seg.Run(context.Background(), lilypad.Ctx{})
	require.NoError(t, err)
	assert.Equal(t, "tides", out["topic"])

	named := build(t, config.StepDef{Brick: "inject", Name: "seed", Options: map[string]any{"key": "n", "value": 0}}, Deps{})
	assert.Equal(t, "seed", named.Name())
}

func TestInjectBrickRequiresOptions(t *testing.T) {
	_, err := Default().Build(config.StepDef{Brick: "inject", Options: map[string]any{"value": 1}}, Deps{})
	assert.ErrorContains(t, err, "option key is required")

	_, err = Default().Build(config.StepDef{Brick: "inject", Options: map[string]any{"key": "k"}}, Deps{})
	assert.ErrorContains(t, err, "option value is required")
}

func TestPromptBrick(t *testing.T) {
	seg := build(t, config.StepDef{Brick: "prompt", Options: map[string]any{
		"template": "Brainstorm about ${topic} for ${audience}.",
	}}, Deps{})
	assert.ElementsMatch(t, []string{"topic", "audience"}, seg.DeclaredReads())
	assert.Equal(t, []string{lilypad.KeyPrompt}, seg.DeclaredWrites())

	out, err := seg.Run(context.Background(), lilypad.Ctx{"topic": "tides", "audience": "kids"})
	require.NoError(t, err)
	assert.Equal(t, "Brainstorm about tides for kids.", out.Prompt())
}

func TestPromptBrickMissingError(t *testing.T) {
	seg := build(t, config.StepDef{Brick: "prompt", Options: map[string]any{
		"template": "${nope}",
		"key":      "q",
		"missing":  "error",
	}}, Deps{})

	_, err := seg.Run(context.Background(), lilypad.Ctx{})
	var uerr *template.UndefinedVariableError
	require.ErrorAs(t, err, &uerr)
}

func TestPromptBrickBadOptions(t *testing.T) {
	_, err := Default().Build(config.StepDef{Brick: "prompt"}, Deps{})
	assert.ErrorContains(t, err, "option template is required")

	_, err = Default().Build(config.StepDef{Brick: "prompt", Options: map[string]any{"template": "x", "missing": "shrug"}}, Deps{})
	assert.ErrorContains(t, err, `unknown action "shrug"`)

	_, err = Default().Build(config.StepDef{Brick: "prompt", Options: map[string]any{"template": "x", "colour": "red"}}, Deps{})
	assert.Error(t, err)
}

func TestLLMBrick(t *testing.T) {
	client := llm.NewMockClient("an answer")
	seg := build(t, config.StepDef{Brick: "llm", Name: "draft", Options: map[string]any{
		"model":       "gpt-4o",
		"system":      "be brief",
		"max_tokens":  "256",
		"temperature": 0.2,
	}}, Deps{Client: client})
	assert.Equal(t, "draft", seg.Name())

	out, err := seg.Run(context.Background(), lilypad.Ctx{lilypad.KeyPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "an answer", out.Answer())

	req := client.LastCall()
	require.NotNil(t, req)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "be brief", req.SystemPrompt)
	assert.Equal(t, 256, req.MaxTokens)
	assert.InDelta(t, 0.2, req.Temperature, 1e-9)
}

func TestLLMBrickMaxAttempts(t *testing.T) {
	client := llm.NewMockClient("").WithError(&lperrors.HTTPError{Provider: "openai", StatusCode: 503, Message: "busy"})
	retry := lperrors.NewRetryConfig(lperrors.WithInitialBackoff(0), lperrors.WithJitter(0))
	seg := build(t, config.StepDef{Brick: "llm", Options: map[string]any{"max_attempts": 2}}, Deps{Client: client, Retry: &retry})

	_, err := seg.Run(context.Background(), lilypad.Ctx{lilypad.KeyPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 2, client.CallCount())
}

func TestLLMBrickNeedsClient(t *testing.T) {
	_, err := Default().Build(config.StepDef{Brick: "llm"}, Deps{})
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestTextBricksDefaults(t *testing.T) {
	pipeline := lilypad.Compose("",
		build(t, config.StepDef{Brick: "lines"}, Deps{}),
		build(t, config.StepDef{Brick: "dedupe"}, Deps{}),
	)
	out, err := pipeline.Run(context.Background(), lilypad.Ctx{lilypad.KeyAnswer: "- a\n- A\n- b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out["lines"])

	seg := build(t, config.StepDef{Brick: "extract-json", Options: map[string]any{"to": "plan"}}, Deps{})
	out, err = seg.Run(context.Background(), lilypad.Ctx{lilypad.KeyAnswer: `{"steps":3}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"steps": float64(3)}, out["plan"])
}

func TestFreshBrick(t *testing.T) {
	seg := build(t, config.StepDef{Brick: "fresh"}, Deps{})
	assert.Equal(t, "fresh", seg.Name())

	out, err := seg.Run(context.Background(), lilypad.Ctx{
		lilypad.KeySession:    &lilypad.Session{ConversationID: "c1"},
		lilypad.KeyTranscript: []lilypad.Message{{Role: "user", Content: "x"}},
		"keep":                true,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Session())
	assert.Nil(t, out.Transcript())
	assert.Equal(t, true, out["keep"])

	renamed := build(t, config.StepDef{Brick: "fresh", Name: "reset"}, Deps{})
	assert.Equal(t, "reset", renamed.Name())

	_, err = Default().Build(config.StepDef{Brick: "fresh", Options: map[string]any{"x": 1}}, Deps{})
	assert.ErrorContains(t, err, "fresh takes no options")
}
