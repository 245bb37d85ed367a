package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfiguration(m, efc, efs float64, rationale string) Configuration {
	return NewConfiguration([]KnobValue{
		{Name: "M", Value: m},
		{Name: "ef_construction", Value: efc},
		{Name: "ef_search", Value: efs},
	}, rationale)
}

func TestConfiguration_Key(t *testing.T) {
	c := testConfiguration(16, 150, 2400, "")
	assert.Equal(t, "M=16,ef_construction=150,ef_search=2400", c.Key())

	gamma := NewConfiguration([]KnobValue{{Name: "gamma", Value: 0.19}}, "")
	assert.Equal(t, "gamma=0.19", gamma.Key())
}

func TestConfiguration_KeyIdentity(t *testing.T) {
	a := testConfiguration(16, 150, 2400, "first")
	b := testConfiguration(16, 150, 2400, "different rationale")
	c := testConfiguration(18, 150, 2400, "")

	assert.Equal(t, a.Key(), b.Key(), "rationale is not part of identity")
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Key(), NewConfiguration(a.Values[:2], "").Key())
}

func TestConfiguration_Get(t *testing.T) {
	c := testConfiguration(16, 150, 2400, "")

	v, ok := c.Get("ef_search")
	assert.True(t, ok)
	assert.Equal(t, 2400.0, v)

	_, ok = c.Get("gamma")
	assert.False(t, ok)
}

func TestNewConfiguration_CopiesValues(t *testing.T) {
	values := []KnobValue{{Name: "M", Value: 16}}
	c := NewConfiguration(values, "")

	values[0].Value = 99

	v, _ := c.Get("M")
	assert.Equal(t, 16.0, v)
}

func TestConfiguration_Describe(t *testing.T) {
	knobs := DefaultTuningConfig().Knobs
	c := NewConfiguration([]KnobValue{
		{Name: "M", Value: 16},
		{Name: "ef_construction", Value: 150},
		{Name: "ef_search", Value: 2400},
		{Name: "gamma", Value: 0.2},
		{Name: "unknown", Value: 1.5},
	}, "")

	assert.Equal(t, "M=16, ef_c=150, ef_s=2400, gamma=0.20, unknown=1.5", c.Describe(knobs))
}
