package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// withLoader routes the config commands to loader and records the path asked for.
func withLoader(t *testing.T, loader *MockConfigLoader) *string {
	t.Helper()
	var asked string
	prev := configLoaders
	configLoaders = func(path string) driven.ConfigLoader {
		asked = path
		return loader
	}
	t.Cleanup(func() { configLoaders = prev })
	return &asked
}

func TestConfigInit_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anntune.toml")
	loader := &MockConfigLoader{FilePath: path}
	asked := withLoader(t, loader)

	out, err := execute(t, "config", "init", "--config", path)

	require.NoError(t, err)
	assert.Equal(t, path, *asked)
	assert.Contains(t, out, "Wrote "+path)
	require.NotNil(t, loader.Saved)
	assert.Equal(t, domain.DefaultTuningConfig(), *loader.Saved)
}

func TestConfigInit_RefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anntune.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trial]\n"), 0600))
	loader := &MockConfigLoader{FilePath: path}
	withLoader(t, loader)

	_, err := execute(t, "config", "init")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Nil(t, loader.Saved)
}

func TestConfigInit_Force(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anntune.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trial]\n"), 0600))
	loader := &MockConfigLoader{FilePath: path}
	withLoader(t, loader)

	_, err := execute(t, "config", "init", "--force")

	require.NoError(t, err)
	assert.NotNil(t, loader.Saved)
}

func TestConfigShow_Defaults(t *testing.T) {
	loader := &MockConfigLoader{FilePath: filepath.Join(t.TempDir(), "anntune.toml")}
	withLoader(t, loader)

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "(not found, using defaults)")
	assert.Contains(t, out, "ef_construction")
	assert.Contains(t, out, "ef_c")
	assert.Contains(t, out, "scoring.recall_target")
	assert.Contains(t, out, "trial.timeouts")
}

func TestConfigShow_BareConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anntune.toml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))
	cfg := domain.DefaultTuningConfig()
	cfg.Sweep = domain.SweepDefinition{Knob: "ef_search", Values: []float64{800, 1600}}
	withLoader(t, &MockConfigLoader{FilePath: path, Config: &cfg})

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration: "+path+"\n")
	assert.Contains(t, out, "ef_s over 800, 1600")
}

func TestConfigShow_LoadError(t *testing.T) {
	withLoader(t, &MockConfigLoader{FilePath: "anntune.toml", LoadErr: domain.ErrInvalidInput})

	_, err := execute(t, "config", "show")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCommands_SkipBootstrap(t *testing.T) {
	withLoader(t, &MockConfigLoader{FilePath: filepath.Join(t.TempDir(), "anntune.toml")})
	prev := bootstrap
	bootstrap = func(string) (*App, error) {
		t.Fatal("config commands must not bootstrap")
		return nil, nil
	}
	t.Cleanup(func() { bootstrap = prev })
	withApp(t, nil)

	_, err := execute(t, "config", "show")

	assert.NoError(t, err)
}
