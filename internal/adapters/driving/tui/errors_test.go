package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingAnalysisService.Error(), ErrMissingResultsPath.Error())
	assert.Contains(t, ErrMissingAnalysisService.Error(), "analysis service")
	assert.Contains(t, ErrMissingResultsPath.Error(), "results path")
}
