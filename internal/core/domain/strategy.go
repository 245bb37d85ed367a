package domain

import (
	"fmt"
	"strings"
)

// Strategy selects how configurations are enumerated for a sweep.
type Strategy string

// Available strategies.
const (
	// StrategyFull is the Cartesian product of every knob's full candidate set.
	StrategyFull Strategy = "full"

	// StrategyQuick is the Cartesian product of the reduced candidate sets.
	StrategyQuick Strategy = "quick"

	// StrategyShortlist tests a curated literal list in listed order.
	StrategyShortlist Strategy = "shortlist"

	// StrategySweep varies one knob while every other knob is held fixed.
	StrategySweep Strategy = "sweep"
)

// AllStrategies lists the strategies in help order.
func AllStrategies() []Strategy {
	return []Strategy{StrategyFull, StrategyQuick, StrategyShortlist, StrategySweep}
}

// IsValid returns true if the strategy is recognised.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyFull, StrategyQuick, StrategyShortlist, StrategySweep:
		return true
	default:
		return false
	}
}

// ParseStrategy converts a strategy name, ignoring case and surrounding space.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: strategy %q (want full, quick, shortlist or sweep)", ErrUnsupportedType, name)
	}
	return s, nil
}

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyFull:
		return "Full grid (every candidate of every knob)"
	case StrategyQuick:
		return "Quick grid (reduced candidates for fast iteration)"
	case StrategyShortlist:
		return "Curated shortlist (listed order)"
	case StrategySweep:
		return "Single-dimension sweep (one knob varies)"
	default:
		return "Unknown"
	}
}
