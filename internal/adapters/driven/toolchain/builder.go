// Package toolchain drives the external compiler that turns the mutated
// source into the program under test.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/logger"
)

// Ensure Builder implements the interface.
var _ driven.Builder = (*Builder)(nil)

// BuildError is a failed compiler invocation. It wraps domain.ErrBuildFailed
// and carries the compiler output.
type BuildError struct {
	Command string
	Output  string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v: %s: %v", domain.ErrBuildFailed, e.Command, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *BuildError) Unwrap() []error {
	return []error{domain.ErrBuildFailed, e.Err}
}

// Diagnostic returns the combined compiler output.
func (e *BuildError) Diagnostic() string {
	return e.Output
}

// Builder runs one fixed compiler command per trial. It never retries.
type Builder struct {
	settings domain.BuildSettings
	workDir  string
	goos     string
}

// NewBuilder creates a builder that runs in workDir.
func NewBuilder(settings domain.BuildSettings, workDir string) *Builder {
	return &Builder{settings: settings, workDir: workDir, goos: runtime.GOOS}
}

// Artifact returns the executable name produced for a strategy.
func (b *Builder) Artifact(strategy domain.Strategy) string {
	name := b.settings.Output + "_" + string(strategy)
	if b.goos == "windows" {
		name += ".exe"
	}
	return name
}

// Command returns the argument vector of the compiler invocation.
func (b *Builder) Command(strategy domain.Strategy) []string {
	args := make([]string, 0, len(b.settings.Flags)+len(b.settings.Units)+3)
	args = append(args, b.settings.Compiler)
	args = append(args, b.settings.Flags...)
	args = append(args, b.settings.Units...)
	return append(args, "-o", b.Artifact(strategy))
}

// Build compiles the sources and returns the absolute artifact path.
func (b *Builder) Build(ctx context.Context, strategy domain.Strategy) (string, error) {
	argv := b.Command(strategy)
	artifact := filepath.Join(b.workDir, b.Artifact(strategy))
	command := strings.Join(argv, " ")

	// A stale artifact must not pass for a fresh build.
	if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
		return "", &BuildError{Command: command, Err: fmt.Errorf("remove stale artifact: %w", err)}
	}

	logger.Debug("Compiling: %s", command)
	start := time.Now()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = b.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &BuildError{Command: command, Output: string(out), Err: err}
	}

	if _, err := os.Stat(artifact); err != nil {
		return "", &BuildError{
			Command: command,
			Output:  string(out),
			Err:     errors.New("compiler exited 0 but produced no executable"),
		}
	}
	if len(out) > 0 {
		logger.Debug("Compiler output:\n%s", out)
	}
	logger.Info("Compiled %s in %s", filepath.Base(artifact), time.Since(start).Round(time.Millisecond))

	abs, err := filepath.Abs(artifact)
	if err != nil {
		return artifact, nil
	}
	return abs, nil
}
