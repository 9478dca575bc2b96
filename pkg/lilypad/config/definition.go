package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/presets"
)

// ErrInvalidDefinition wraps every Validate failure.
var ErrInvalidDefinition = errors.New("invalid pipeline definition")

// Definition describes a pipeline declaratively.
type Definition struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`

	// Pattern is an explicit rhythm. Mutually exclusive with Preset.
	Pattern string `mapstructure:"pattern"`
	// Preset names a rhythm from the presets package.
	Preset string `mapstructure:"preset"`

	// ContractCheck enables the compile-time read/write check, seeded with
	// the keys of Initial.
	ContractCheck bool `mapstructure:"contract_check"`

	// Initial is the Ctx a run starts from.
	Initial map[string]any `mapstructure:"initial"`

	Steps []StepDef `mapstructure:"steps"`
}

// StepDef is one step of a Definition: either a brick or, when the
// rhythm is spelled by the steps, a trim.
type StepDef struct {
	// Brick names the catalog entry that builds the segment.
	Brick string `mapstructure:"brick"`
	// Name overrides the segment name.
	Name string `mapstructure:"name"`
	// Symbol is the step's rhythm symbol when there is no Pattern or Preset.
	Symbol string `mapstructure:"symbol"`
	// Trim makes this a T<n> step. Only valid without Pattern or Preset.
	Trim int `mapstructure:"trim"`

	Options map[string]any `mapstructure:"options"`
}

// IsTrim reports whether the step is a trim rather than a brick.
func (s StepDef) IsTrim() bool {
	return s.Trim != 0
}

// Bricks returns the non-trim steps in order: the ones that need segments.
func (d *Definition) Bricks() []StepDef {
	out := make([]StepDef, 0, len(d.Steps))
	for _, s := range d.Steps {
		if !s.IsTrim() {
			out = append(out, s)
		}
	}
	return out
}

// ResolvePattern returns the rhythm to compile: Pattern, the Preset's
// pattern, or the steps' own symbols joined by spaces.
func (d *Definition) ResolvePattern() (string, error) {
	switch {
	case d.Pattern != "":
		return d.Pattern, nil
	case d.Preset != "":
		return presets.Lookup(d.Preset)
	}
	symbols := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		if s.IsTrim() {
			symbols[i] = "T" + strconv.Itoa(s.Trim)
		} else {
			symbols[i] = s.Symbol
		}
	}
	return strings.Join(symbols, " "), nil
}

// Validate checks the definition's shape, and for a pattern or preset that
// its slot count matches the number of brick steps. All problems are
// reported together.
func (d *Definition) Validate() error {
	var errs []error
	if len(d.Steps) == 0 {
		errs = append(errs, errors.New("no steps"))
	}
	if d.Pattern != "" && d.Preset != "" {
		errs = append(errs, errors.New("pattern and preset are mutually exclusive"))
	}
	rhythmGiven := d.Pattern != "" || d.Preset != ""

	for i, s := range d.Steps {
		switch {
		case s.Trim < 0:
			errs = append(errs, fmt.Errorf("step %d: trim budget %d must be positive", i, s.Trim))
		case s.IsTrim() && s.Brick != "":
			errs = append(errs, fmt.Errorf("step %d: a step is either a trim or a brick", i))
		case s.IsTrim() && rhythmGiven:
			errs = append(errs, fmt.Errorf("step %d: trim steps belong in the pattern when a pattern or preset is set", i))
		case !s.IsTrim() && s.Brick == "":
			errs = append(errs, fmt.Errorf("step %d: brick is required", i))
		case !s.IsTrim() && !rhythmGiven && s.Symbol == "":
			errs = append(errs, fmt.Errorf("step %d (%s): symbol is required without a pattern or preset", i, s.Brick))
		}
	}

	if len(errs) == 0 {
		if err := d.checkRhythm(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}
	return nil
}

func (d *Definition) checkRhythm() error {
	pattern, err := d.ResolvePattern()
	if err != nil {
		return err
	}
	parsed, err := lilypad.ParsePattern(pattern)
	if err != nil {
		return err
	}
	if slots, bricks := parsed.Slots(), len(d.Bricks()); slots != bricks {
		return fmt.Errorf("rhythm %q has %d slots but %d brick steps are defined", pattern, slots, bricks)
	}
	return nil
}
