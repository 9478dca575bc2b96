package bricks

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/config"
)

// Assemble validates def, builds a segment for every brick step with cat,
// and compiles the resolved rhythm. It returns the pipeline together with
// the definition's initial Ctx.
//
// The pipeline is named after the definition. With ContractCheck set, the
// keys of Initial seed the check. opts are applied after those defaults.
// Every brick failure is reported, not just the first.
func Assemble(def *config.Definition, cat *Catalog, deps Deps, opts ...lilypad.Option) (*lilypad.Pipeline, lilypad.Ctx, error) {
	if def == nil {
		return nil, nil, errors.New("bricks: nil definition")
	}
	if cat == nil {
		cat = Default()
	}
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}

	var errs []error
	steps := def.Bricks()
	segs := make([]lilypad.Segment, 0, len(steps))
	for i, step := range steps {
		seg, err := cat.Build(step, deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i, err))
			continue
		}
		segs = append(segs, seg)
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}

	pattern, err := def.ResolvePattern()
	if err != nil {
		return nil, nil, err
	}

	initial := lilypad.Ctx(maps.Clone(def.Initial))
	if initial == nil {
		initial = lilypad.Ctx{}
	}

	all := []lilypad.Option{lilypad.WithLogger(deps.logger())}
	if def.Name != "" {
		all = append(all, lilypad.WithName(def.Name))
	}
	if def.ContractCheck {
		keys := slices.Sorted(maps.Keys(initial))
		all = append(all, lilypad.WithContractCheck(keys...))
	}
	all = append(all, opts...)

	p, err := lilypad.Compile(pattern, segs, all...)
	if err != nil {
		return nil, nil, err
	}
	return p, initial, nil
}
