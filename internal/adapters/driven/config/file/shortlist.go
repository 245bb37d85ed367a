package file

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// shortlistFile is the YAML layout of a curated shortlist:
//
//	shortlist:
//	  - values: {M: 18, ef_construction: 150, ef_search: 2400}
//	    rationale: current optimized
type shortlistFile struct {
	Shortlist []struct {
		Values    map[string]float64 `yaml:"values"`
		Rationale string             `yaml:"rationale"`
	} `yaml:"shortlist"`
}

// LoadShortlist reads a curated shortlist from a YAML file.
// Knob names are checked against the configuration when the sweep is planned.
func LoadShortlist(path string) ([]domain.ShortlistEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f shortlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, path, err)
	}
	if len(f.Shortlist) == 0 {
		return nil, fmt.Errorf("%w: %s: shortlist is empty", domain.ErrInvalidInput, path)
	}

	entries := make([]domain.ShortlistEntry, len(f.Shortlist))
	for i, e := range f.Shortlist {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: %s: entry %d has no values", domain.ErrInvalidInput, path, i+1)
		}
		entries[i] = domain.ShortlistEntry{Values: e.Values, Rationale: e.Rationale}
	}
	return entries, nil
}
