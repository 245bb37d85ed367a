package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

func writeShortlist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shortlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadShortlist(t *testing.T) {
	path := writeShortlist(t, `
shortlist:
  - values: {M: 18, ef_construction: 150, ef_search: 2400}
    rationale: current optimized
  - values:
      M: 20
      gamma: 0.22
`)

	entries, err := LoadShortlist(path)
	require.NoError(t, err)

	assert.Equal(t, []domain.ShortlistEntry{
		{
			Values:    map[string]float64{"M": 18, "ef_construction": 150, "ef_search": 2400},
			Rationale: "current optimized",
		},
		{
			Values: map[string]float64{"M": 20, "gamma": 0.22},
		},
	}, entries)
}

func TestLoadShortlist_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty list", content: "shortlist: []\n"},
		{name: "no values", content: "shortlist:\n  - rationale: nothing to set\n"},
		{name: "malformed", content: "shortlist: [values: {M: }"},
		{name: "wrong value type", content: "shortlist:\n  - values: {M: large}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadShortlist(writeShortlist(t, tt.content))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLoadShortlist_MissingFile(t *testing.T) {
	_, err := LoadShortlist(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
