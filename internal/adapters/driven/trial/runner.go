// Package trial executes the program under test with a wall-clock limit.
package trial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/logger"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = 5 * time.Second

// Ensure Runner implements the interface.
var _ driven.TrialRunner = (*Runner)(nil)

// RunError is a trial that did not complete. It wraps domain.ErrTrialTimeout
// or domain.ErrTrialRuntime.
type RunError struct {
	Kind    error
	Err     error
	Elapsed time.Duration
	Stderr  string
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v after %s", e.Kind, e.Elapsed.Round(time.Second))
	}
	return fmt.Sprintf("%v after %s: %v", e.Kind, e.Elapsed.Round(time.Second), e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *RunError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Diagnostic returns what the program wrote to stderr.
func (e *RunError) Diagnostic() string {
	return e.Stderr
}

// Runner starts one process per trial and waits for it.
type Runner struct {
	heartbeat time.Duration
	tail      time.Duration
}

// NewRunner creates a runner that logs a progress line every heartbeat
// while a trial runs. Zero disables the heartbeat.
func NewRunner(heartbeat time.Duration) *Runner {
	return &Runner{heartbeat: heartbeat, tail: 30 * time.Second}
}

// Run executes run.Executable with run.Dataset as its only argument.
func (r *Runner) Run(ctx context.Context, run driven.TrialRun) (*driven.TrialResult, error) {
	tctx := ctx
	if run.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, run.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(tctx, run.Executable, run.Dataset)
	startGroup(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Stdout = &tailWriter{
		w:     &stdout,
		label: run.Label,
		every: &rate.Sometimes{First: 1, Interval: r.tail},
	}
	cmd.Stderr = &stderr

	logger.Debug("Running: %s %s (timeout %s)", run.Executable, run.Dataset, run.Timeout)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &RunError{Kind: domain.ErrTrialRuntime, Err: err}
	}

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		return cmd.Wait()
	})
	if r.heartbeat > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(r.heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return nil
				case <-ticker.C:
					logger.Progress("%s: running for %s", run.Label, time.Since(start).Round(time.Second))
				}
			}
		})
	}
	waitErr := g.Wait()
	if err := killGroup(cmd); err != nil {
		logger.Warn("%s: could not stop leftover processes: %v", run.Label, err)
	}

	result := &driven.TrialResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		return result, ctx.Err()
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		return result, &RunError{Kind: domain.ErrTrialTimeout, Elapsed: result.Duration, Stderr: result.Stderr}
	case waitErr != nil:
		return result, &RunError{Kind: domain.ErrTrialRuntime, Err: waitErr, Elapsed: result.Duration, Stderr: result.Stderr}
	}

	logger.Debug("Trial finished in %s", result.Duration.Round(time.Millisecond))
	return result, nil
}

// tailWriter captures output and, in verbose mode, logs the latest line at
// most once per interval.
type tailWriter struct {
	mu    sync.Mutex
	w     *bytes.Buffer
	label string
	every *rate.Sometimes
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.w.Write(p)
	if logger.IsVerbose() {
		if line := lastLine(p); line != "" {
			t.every.Do(func() { logger.Debug("[%s] %s", t.label, line) })
		}
	}
	return n, err
}

func lastLine(p []byte) string {
	s := strings.TrimRight(string(p), "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
