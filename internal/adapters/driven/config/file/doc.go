// Package file provides file-based implementations of driven port interfaces.
// These adapters read tuning setup from the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration with ANNTUNE_* environment overrides
//   - LoadShortlist: YAML curated shortlists
package file
