package bricks

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/config"
	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
	"github.com/0xA-10/lilypad/pkg/lilypad/llm"
	"github.com/0xA-10/lilypad/pkg/lilypad/template"
)

// ErrNoClient is returned when an llm brick is built without Deps.Client.
var ErrNoClient = errors.New("llm brick needs a client")

func newInject(step config.StepDef, _ Deps) (lilypad.Segment, error) {
	opts := config.NewOptions(step.Options)
	key := opts.String("key", "")
	if key == "" {
		return lilypad.Segment{}, errors.New("option key is required")
	}
	if !opts.Has("value") {
		return lilypad.Segment{}, errors.New("option value is required")
	}
	value := opts.Any("value", nil)
	return lilypad.NewSegment(segmentName(step, "inject:"+key), lilypad.Inject(key, value).Run, lilypad.Writes(key)), nil
}

// newPrompt renders a template against the Ctx. Its reads are the template's
// top-level references, so the contract check sees them.
func newPrompt(step config.StepDef, _ Deps) (lilypad.Segment, error) {
	var o struct {
		Template string `mapstructure:"template"`
		Key      string `mapstructure:"key"`
		Missing  string `mapstructure:"missing"`
	}
	if err := config.NewOptions(step.Options).Decode(&o); err != nil {
		return lilypad.Segment{}, err
	}
	if o.Template == "" {
		return lilypad.Segment{}, errors.New("option template is required")
	}
	if o.Key == "" {
		o.Key = lilypad.KeyPrompt
	}

	var action template.MissingAction
	switch o.Missing {
	case "", "keep":
		action = template.MissingKeep
	case "empty":
		action = template.MissingEmpty
	case "error":
		action = template.MissingError
	default:
		return lilypad.Segment{}, fmt.Errorf("option missing: unknown action %q", o.Missing)
	}

	exp := template.NewExpander(template.WithMissingAction(action))
	tmpl, key := o.Template, o.Key
	return lilypad.NewSegment(segmentName(step, "prompt"), func(_ context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
		out, err := exp.Expand(tmpl, c)
		if err != nil {
			return nil, err
		}
		return c.With(key, out), nil
	}, lilypad.Reads(exp.References(tmpl)...), lilypad.Writes(key)), nil
}

func newLLM(step config.StepDef, deps Deps) (lilypad.Segment, error) {
	if deps.Client == nil {
		return lilypad.Segment{}, ErrNoClient
	}
	var o struct {
		Model       string  `mapstructure:"model"`
		System      string  `mapstructure:"system"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
		PromptKey   string  `mapstructure:"prompt_key"`
		AnswerKey   string  `mapstructure:"answer_key"`
		MaxAttempts int     `mapstructure:"max_attempts"`
	}
	if err := config.NewOptions(step.Options).Decode(&o); err != nil {
		return lilypad.Segment{}, err
	}

	retry := lperrors.DefaultRetry
	if deps.Retry != nil {
		retry = *deps.Retry
	}
	if o.MaxAttempts > 0 {
		retry.MaxAttempts = o.MaxAttempts
	}

	opts := []llm.SegmentOption{
		llm.WithName(segmentName(step, "llm")),
		llm.WithRetry(retry),
		llm.WithLogger(deps.logger()),
	}
	if o.Model != "" {
		opts = append(opts, llm.WithSegmentModel(o.Model))
	}
	if o.System != "" {
		opts = append(opts, llm.WithSystemPrompt(o.System))
	}
	if o.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(o.MaxTokens))
	}
	if o.Temperature != 0 {
		opts = append(opts, llm.WithTemperature(o.Temperature))
	}
	if o.PromptKey != "" {
		opts = append(opts, llm.WithPromptKey(o.PromptKey))
	}
	if o.AnswerKey != "" {
		opts = append(opts, llm.WithAnswerKey(o.AnswerKey))
	}
	return llm.Segment(deps.Client, opts...), nil
}

// fromTo reads the from/to options shared by the text bricks.
func fromTo(step config.StepDef, defaultTo string) (string, string, error) {
	var o struct {
		From string `mapstructure:"from"`
		To   string `mapstructure:"to"`
	}
	if err := config.NewOptions(step.Options).Decode(&o); err != nil {
		return "", "", err
	}
	if o.From == "" {
		o.From = lilypad.KeyAnswer
	}
	if o.To == "" {
		o.To = defaultTo
	}
	return o.From, o.To, nil
}

func newExtractJSON(step config.StepDef, _ Deps) (lilypad.Segment, error) {
	from, to, err := fromTo(step, "json")
	if err != nil {
		return lilypad.Segment{}, err
	}
	return ExtractJSON(segmentName(step, "extract-json"), from, to), nil
}

func newLines(step config.StepDef, _ Deps) (lilypad.Segment, error) {
	from, to, err := fromTo(step, "lines")
	if err != nil {
		return lilypad.Segment{}, err
	}
	return Lines(segmentName(step, "lines"), from, to), nil
}

func newDedupe(step config.StepDef, _ Deps) (lilypad.Segment, error) {
	var o struct {
		From string `mapstructure:"from"`
		To   string `mapstructure:"to"`
	}
	if err := config.NewOptions(step.Options).Decode(&o); err != nil {
		return lilypad.Segment{}, err
	}
	if o.From == "" {
		o.From = "lines"
	}
	if o.To == "" {
		o.To = o.From
	}
	return DedupeSegment(segmentName(step, "dedupe"), o.From, o.To), nil
}

func newFresh(step config.StepDef, _ Deps) (lilypad.Segment, error) {
	if len(step.Options) > 0 {
		return lilypad.Segment{}, errors.New("fresh takes no options")
	}
	if step.Name == "" {
		return lilypad.Fresh(), nil
	}
	return lilypad.NewSegment(step.Name, lilypad.Fresh().Run, lilypad.Writes()), nil
}
