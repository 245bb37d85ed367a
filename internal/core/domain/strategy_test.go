package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input string
		want  Strategy
	}{
		{"full", StrategyFull},
		{"Quick", StrategyQuick},
		{" shortlist ", StrategyShortlist},
		{"SWEEP", StrategySweep},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStrategy_Unknown(t *testing.T) {
	_, err := ParseStrategy("random")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStrategy_Description(t *testing.T) {
	for _, s := range AllStrategies() {
		assert.True(t, s.IsValid())
		assert.NotEqual(t, "Unknown", s.Description(), s)
	}
	assert.Equal(t, "Unknown", Strategy("random").Description())
}
