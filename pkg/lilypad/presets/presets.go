// Package presets holds named rhythm patterns for common prompt chains.
//
// Each preset is a pattern string ready for lilypad.Compile; the caller
// supplies one segment per non-trim symbol.
package presets

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Named rhythm patterns.
const (
	FinanceJig    = "D D B B S T800 D S"
	Brief         = "D B S B S D"
	FitnessFlow   = "D B B S D"
	DreamSpiral   = "D B D B B D B B B S T1200 D"
	ClimateWave   = "D B S B M(claude-3-7-sonnet-20250219) S T1500 D S"
	GoldenRatio   = "D B D B B S T900 D"
	TriageConduct = "D S T1200 D"
	Loom          = "D B S B S D T1000 D"
)

var registry = map[string]string{
	"FINANCE_JIG":    FinanceJig,
	"BRIEF":          Brief,
	"FITNESS_FLOW":   FitnessFlow,
	"DREAM_SPIRAL":   DreamSpiral,
	"CLIMATE_WAVE":   ClimateWave,
	"GOLDEN_RATIO":   GoldenRatio,
	"TRIAGE_CONDUCT": TriageConduct,
	"LOOM":           Loom,
}

// ErrUnknownPreset is returned by Lookup for a name with no preset.
var ErrUnknownPreset = errors.New("unknown preset")

// Lookup returns the pattern for name. Names are matched case-insensitively
// and '-' is accepted in place of '_'.
func Lookup(name string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	p, ok := registry[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names returns every preset name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// All returns a copy of the name to pattern table.
func All() map[string]string {
	out := make(map[string]string, len(registry))
	for k, v := range registry {
		out[k] = v
	}
	return out
}
