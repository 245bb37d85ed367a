package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Knob is a named numeric tunable of the program under test.
type Knob struct {
	// Name is the identifier assigned in the target source (e.g. "ef_construction").
	Name string

	// Label is the short form recorded in the marker comment (e.g. "ef_c").
	// Defaults to Name when empty.
	Label string

	// Values is the full-grid candidate set. Empty means the knob is held at Default.
	Values []float64

	// Quick is the reduced candidate set used by the quick grid.
	// Must be a subset of Values. Empty means the knob is held at Default.
	Quick []float64

	// Default is the fixed value used whenever a strategy does not vary the knob.
	Default float64

	// Precision is the number of decimals written to the source.
	// Zero formats the value as an integer and admits only integral values.
	// Negative values are only used for
	// knobs discovered in stored results and select the shortest representation.
	Precision int
}

// DisplayLabel returns the label used in marker comments and tables.
func (k Knob) DisplayLabel() string {
	if k.Label != "" {
		return k.Label
	}
	return k.Name
}

// Format renders a value the way it is written into the target source.
func (k Knob) Format(v float64) string {
	switch {
	case k.Precision < 0:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case k.Precision == 0 && v == math.Trunc(v):
		return strconv.FormatInt(int64(v), 10)
	case k.Precision == 0:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', k.Precision, 64)
}

// IsFixed reports whether the full grid holds this knob constant.
func (k Knob) IsFixed() bool {
	return len(k.Values) == 0
}

// Validate checks the knob definition.
func (k Knob) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("%w: knob name is empty", ErrInvalidInput)
	}
	if k.Precision < 0 {
		return fmt.Errorf("%w: knob %s has negative precision", ErrInvalidInput, k.Name)
	}
	if err := k.CheckValue("default", k.Default); err != nil {
		return err
	}
	for _, v := range k.Values {
		if err := k.CheckValue("value", v); err != nil {
			return err
		}
	}
	for _, q := range k.Quick {
		if err := k.CheckValue("quick value", q); err != nil {
			return err
		}
		if len(k.Values) > 0 && !slices.Contains(k.Values, q) {
			return fmt.Errorf("%w: knob %s quick value %v is not a full-grid candidate",
				ErrInvalidInput, k.Name, q)
		}
	}
	return nil
}

// CheckValue reports whether v can be written to the source at the knob's
// precision without changing it.
func (k Knob) CheckValue(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: knob %s %s %v is not finite", ErrInvalidInput, k.Name, what, v)
	}
	if k.Precision == 0 && v != math.Trunc(v) {
		return fmt.Errorf("%w: knob %s %s %v is fractional but precision is 0; set precision",
			ErrInvalidInput, k.Name, what, v)
	}
	return nil
}
