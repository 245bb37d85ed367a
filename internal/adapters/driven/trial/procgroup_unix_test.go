//go:build unix

package trial

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// childPID reads the pid the fake program wrote for its background child.
func childPID(t *testing.T, path string) int {
	t.Helper()
	var pid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	return pid
}

// alive reports whether pid is a running, non-zombie process.
func alive(pid int) bool {
	if data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat")); err == nil {
		fields := strings.Fields(string(data[strings.LastIndexByte(string(data), ')')+1:]))
		return len(fields) > 0 && fields[0] != "Z"
	}
	return syscall.Kill(pid, 0) == nil
}

func TestRunner_TimeoutKillsBackgroundChildren(t *testing.T) {
	exe := fakeProgram(t, "sleep 47 &\necho $! > \"$1\"\nwait\n")
	pidFile := filepath.Join(t.TempDir(), "child.pid")

	start := time.Now()
	res, err := NewRunner(0).Run(context.Background(), driven.TrialRun{
		Executable: exe,
		Dataset:    pidFile,
		Timeout:    500 * time.Millisecond,
	})

	require.ErrorIs(t, err, domain.ErrTrialTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
	require.NotNil(t, res)
	assert.Less(t, res.Duration, 3*time.Second)

	pid := childPID(t, pidFile)
	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond,
		"background child %d survived the timeout", pid)
}

func TestRunner_ParentCancelKillsBackgroundChildren(t *testing.T) {
	exe := fakeProgram(t, "sleep 47 &\necho $! > \"$1\"\nwait\n")
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	_, err := NewRunner(0).Run(ctx, driven.TrialRun{Executable: exe, Dataset: pidFile, Timeout: time.Minute})

	require.ErrorIs(t, err, context.Canceled)
	pid := childPID(t, pidFile)
	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond)
}

func TestRunner_SuccessStopsLeftoverProcesses(t *testing.T) {
	exe := fakeProgram(t, "sleep 47 >/dev/null 2>&1 &\necho $! > \"$1\"\necho 'Recall@10: 0.99'\n")
	pidFile := filepath.Join(t.TempDir(), "child.pid")

	res, err := NewRunner(0).Run(context.Background(), driven.TrialRun{
		Executable: exe,
		Dataset:    pidFile,
		Timeout:    10 * time.Second,
	})

	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "Recall@10: 0.99")
	pid := childPID(t, pidFile)
	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond)
}
