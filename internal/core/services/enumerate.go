package services

import (
	"fmt"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// Enumerate expands a strategy into its configurations, in test order.
// shortlist overrides cfg.Shortlist when non-empty.
func Enumerate(
	cfg *domain.TuningConfig,
	strategy domain.Strategy,
	shortlist []domain.ShortlistEntry,
) ([]domain.Configuration, error) {
	switch strategy {
	case domain.StrategyFull:
		return cartesian(cfg.Knobs, func(k domain.Knob) []float64 { return k.Values }), nil
	case domain.StrategyQuick:
		return cartesian(cfg.Knobs, func(k domain.Knob) []float64 { return k.Quick }), nil
	case domain.StrategyShortlist:
		if len(shortlist) == 0 {
			shortlist = cfg.Shortlist
		}
		return shortlistConfigurations(cfg.Knobs, shortlist)
	case domain.StrategySweep:
		return sweepConfigurations(cfg.Knobs, cfg.Sweep)
	default:
		return nil, fmt.Errorf("%w: strategy %q", domain.ErrUnsupportedType, strategy)
	}
}

// cartesian builds the product of each knob's candidates. The first declared
// knob is the outermost loop. Knobs with no candidates are held at Default.
func cartesian(knobs []domain.Knob, candidates func(domain.Knob) []float64) []domain.Configuration {
	axes := make([][]float64, len(knobs))
	for i, k := range knobs {
		axes[i] = candidates(k)
		if len(axes[i]) == 0 {
			axes[i] = []float64{k.Default}
		}
	}

	var out []domain.Configuration
	current := make([]domain.KnobValue, len(knobs))

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(knobs) {
			out = append(out, domain.NewConfiguration(current, ""))
			return
		}
		for _, v := range axes[depth] {
			current[depth] = domain.KnobValue{Name: knobs[depth].Name, Value: v}
			walk(depth + 1)
		}
	}
	walk(0)

	return out
}

func shortlistConfigurations(knobs []domain.Knob, entries []domain.ShortlistEntry) ([]domain.Configuration, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: shortlist is empty", domain.ErrInvalidInput)
	}

	out := make([]domain.Configuration, 0, len(entries))
	for i, entry := range entries {
		for name := range entry.Values {
			if !hasKnob(knobs, name) {
				return nil, fmt.Errorf("%w: shortlist entry %d references unknown knob %s",
					domain.ErrInvalidInput, i+1, name)
			}
		}

		values := make([]domain.KnobValue, len(knobs))
		for j, k := range knobs {
			v, ok := entry.Values[k.Name]
			if !ok {
				v = k.Default
			}
			values[j] = domain.KnobValue{Name: k.Name, Value: v}
		}
		out = append(out, domain.NewConfiguration(values, entry.Rationale))
	}
	return out, nil
}

func sweepConfigurations(knobs []domain.Knob, sweep domain.SweepDefinition) ([]domain.Configuration, error) {
	if sweep.Knob == "" || !hasKnob(knobs, sweep.Knob) {
		return nil, fmt.Errorf("%w: sweep knob %q is not defined", domain.ErrInvalidInput, sweep.Knob)
	}

	candidates := sweep.Values
	if len(candidates) == 0 {
		for _, k := range knobs {
			if k.Name == sweep.Knob {
				candidates = k.Values
			}
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: sweep knob %s has no candidates", domain.ErrInvalidInput, sweep.Knob)
	}

	out := make([]domain.Configuration, 0, len(candidates))
	for _, candidate := range candidates {
		values := make([]domain.KnobValue, len(knobs))
		for j, k := range knobs {
			v := k.Default
			if fixed, ok := sweep.Fixed[k.Name]; ok {
				v = fixed
			}
			if k.Name == sweep.Knob {
				v = candidate
			}
			values[j] = domain.KnobValue{Name: k.Name, Value: v}
		}
		out = append(out, domain.NewConfiguration(values, ""))
	}
	return out, nil
}

func hasKnob(knobs []domain.Knob, name string) bool {
	for _, k := range knobs {
		if k.Name == name {
			return true
		}
	}
	return false
}
