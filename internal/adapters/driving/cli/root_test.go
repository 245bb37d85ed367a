package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/logger"
)

func withBootstrap(t *testing.T, b Bootstrap) {
	t.Helper()
	prev := bootstrap
	bootstrap = b
	t.Cleanup(func() { bootstrap = prev })
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "anntune", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"tune", "plan", "analyze", "report", "logs", "dashboard", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestSetup_BootstrapsWithConfigPath(t *testing.T) {
	withApp(t, nil)
	var gotPath string
	withBootstrap(t, func(path string) (*App, error) {
		gotPath = path
		return &App{Analysis: &MockAnalysisService{}}, nil
	})

	out, err := execute(t, "analyze", "--config", "/etc/anntune.toml")

	require.NoError(t, err)
	assert.Equal(t, "/etc/anntune.toml", gotPath)
	assert.Contains(t, out, "No trials recorded yet.")
}

func TestSetup_BootstrapError(t *testing.T) {
	withApp(t, nil)
	withBootstrap(t, func(string) (*App, error) {
		return nil, domain.ErrInvalidInput
	})

	_, err := execute(t, "analyze")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "load configuration")
}

func TestSetup_NoBootstrap(t *testing.T) {
	withApp(t, nil)
	withBootstrap(t, nil)

	_, err := execute(t, "analyze")

	assert.EqualError(t, err, "services not configured")
}

func TestSetup_VerboseFlag(t *testing.T) {
	withApp(t, &App{Analysis: &MockAnalysisService{}})

	_, err := execute(t, "analyze", "-v")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestExecute_ClosesApp(t *testing.T) {
	withApp(t, nil)
	closed := 0
	withBootstrap(t, func(string) (*App, error) {
		return &App{
			Analysis: &MockAnalysisService{},
			Close: func() error {
				closed++
				return errors.New("already closed")
			},
		}, nil
	})
	t.Cleanup(func() { resetFlags(rootCmd) })
	rootCmd.SetArgs([]string{"analyze"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Nil(t, app)
}

func TestDashboardCmd_NotConfigured(t *testing.T) {
	withApp(t, &App{})

	_, err := execute(t, "dashboard")

	assert.EqualError(t, err, "analysis service not configured")
}

func TestDashboardCmd_RequiresResultsPath(t *testing.T) {
	withApp(t, &App{Analysis: &MockAnalysisService{}})

	_, err := execute(t, "dashboard")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create dashboard")
}

func TestMuteLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	restore := muteLogger()
	logger.Warn("hidden while the dashboard runs")
	restore()
	logger.Warn("visible again")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible again")
}
