package driven

import "github.com/custodia-labs/anntune/internal/core/domain"

// ConfigLoader provides the tuning configuration.
// Implementations handle persistence (e.g., TOML files) and environment overrides.
type ConfigLoader interface {
	// Load returns the validated configuration.
	// A missing file yields the defaults.
	Load() (*domain.TuningConfig, error)

	// Save writes the configuration to storage.
	Save(cfg *domain.TuningConfig) error

	// Path returns the configuration file path.
	Path() string
}
