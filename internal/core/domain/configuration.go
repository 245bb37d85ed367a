package domain

import (
	"strconv"
	"strings"
)

// KnobValue is one (knob, value) pair of a configuration.
type KnobValue struct {
	Name  string
	Value float64
}

// Configuration is one concrete assignment of values to the knobs under test.
// Values are kept in knob declaration order. A Configuration is a value object:
// it is never modified after enumeration.
type Configuration struct {
	// Values holds the knob tuple in declaration order.
	Values []KnobValue

	// Rationale explains why a shortlist entry was chosen. It is not part of identity.
	Rationale string
}

// NewConfiguration builds a configuration from a knob tuple.
func NewConfiguration(values []KnobValue, rationale string) Configuration {
	cp := make([]KnobValue, len(values))
	copy(cp, values)
	return Configuration{Values: cp, Rationale: rationale}
}

// Get returns the value of the named knob.
func (c Configuration) Get(name string) (float64, bool) {
	for _, kv := range c.Values {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return 0, false
}

// Key returns the structural identity of the knob tuple, e.g. "M=16,ef_construction=150".
func (c Configuration) Key() string {
	parts := make([]string, len(c.Values))
	for i, kv := range c.Values {
		parts[i] = kv.Name + "=" + strconv.FormatFloat(kv.Value, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Describe renders the configuration with knob labels and source formatting,
// e.g. "M=16, ef_c=150, ef_s=2400". Knobs without a definition use their name
// and shortest float formatting.
func (c Configuration) Describe(knobs []Knob) string {
	byName := make(map[string]Knob, len(knobs))
	for _, k := range knobs {
		byName[k.Name] = k
	}

	parts := make([]string, len(c.Values))
	for i, kv := range c.Values {
		if k, ok := byName[kv.Name]; ok {
			parts[i] = k.DisplayLabel() + "=" + k.Format(kv.Value)
			continue
		}
		parts[i] = kv.Name + "=" + strconv.FormatFloat(kv.Value, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}
