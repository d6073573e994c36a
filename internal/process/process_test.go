//go:build !windows

package process

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// requireShell skips the test when /bin/sh is not available.
func requireShell(t *testing.T) string {
	t.Helper()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	return sh
}

// TestRun_NaturalExit verifies exit codes are reported for processes that finish in time.
func TestRun_NaturalExit(t *testing.T) {
	t.Parallel()

	sh := requireShell(t)

	res := Run(context.Background(), Spec{Name: "ok", Path: sh, Args: []string{"-c", "exit 0"}, Timeout: 5 * time.Second})
	require.True(t, res.OK())
	require.Equal(t, 0, res.ExitCode)

	res = Run(context.Background(), Spec{Name: "fail", Path: sh, Args: []string{"-c", "exit 3"}, Timeout: 5 * time.Second})
	require.False(t, res.OK())
	require.Equal(t, 3, res.ExitCode)
	require.False(t, res.TimedOut)
}

// TestRun_TimeoutTerminates checks that a sleeping process is terminated at the deadline.
func TestRun_TimeoutTerminates(t *testing.T) {
	t.Parallel()

	sh := requireShell(t)

	started := time.Now()
	res := Run(context.Background(), Spec{
		Name:    "sleeper",
		Path:    sh,
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
		Grace:   500 * time.Millisecond,
	})

	require.True(t, res.TimedOut)
	require.False(t, res.OK())
	require.Less(t, time.Since(started), 3*time.Second)
}

// TestRun_KillsAfterGrace uses a child that ignores SIGTERM so the SIGKILL path runs.
func TestRun_KillsAfterGrace(t *testing.T) {
	t.Parallel()

	sh := requireShell(t)

	started := time.Now()
	res := Run(context.Background(), Spec{
		Name:    "stubborn",
		Path:    sh,
		Args:    []string{"-c", `trap "" TERM; while :; do sleep 0.05; done`},
		Timeout: 100 * time.Millisecond,
		Grace:   200 * time.Millisecond,
	})

	require.True(t, res.TimedOut)
	require.Less(t, time.Since(started), 100*time.Millisecond+200*time.Millisecond+reapTimeout)
}

// TestRun_ContextCancel ensures cancellation ends the wait and tears the process down.
func TestRun_ContextCancel(t *testing.T) {
	t.Parallel()

	sh := requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := Run(ctx, Spec{Name: "sleeper", Path: sh, Args: []string{"-c", "sleep 10"}, Timeout: 10 * time.Second})
	require.True(t, res.Canceled)
	require.False(t, res.TimedOut)
}

// TestRun_StartError reports a missing binary as Err with exit code -1.
func TestRun_StartError(t *testing.T) {
	t.Parallel()

	res := Run(context.Background(), Spec{Name: "ghost", Path: "/nonexistent/edge-alert-ghost", Timeout: time.Second})
	require.Error(t, res.Err)
	require.Equal(t, -1, res.ExitCode)

	res = Run(context.Background(), Spec{Name: "empty"})
	require.ErrorIs(t, res.Err, ErrNoCommand)
}

// TestRun_Stdin feeds text to the child and checks it was consumed.
func TestRun_Stdin(t *testing.T) {
	t.Parallel()

	sh := requireShell(t)

	res := Run(context.Background(), Spec{
		Name:    "reader",
		Path:    sh,
		Args:    []string{"-c", `read line; test "$line" = "evacuate now"`},
		Stdin:   strings.NewReader("evacuate now\n"),
		Timeout: 5 * time.Second,
	})
	require.True(t, res.OK())
}

// TestHandle_PollAndRelease covers the poll-then-release shape used for the siren.
func TestHandle_PollAndRelease(t *testing.T) {
	t.Parallel()

	sh := requireShell(t)

	h, err := Start(context.Background(), Spec{Name: "siren", Path: sh, Args: []string{"-c", "sleep 10"}})
	require.NoError(t, err)

	_, exited := h.Poll(50 * time.Millisecond)
	require.False(t, exited)

	h.Release()
	h.Release()

	select {
	case <-h.done:
	default:
		t.Fatal("process still alive after Release")
	}

	h, err = Start(context.Background(), Spec{Name: "siren", Path: sh, Args: []string{"-c", "exit 1"}})
	require.NoError(t, err)

	defer h.Release()

	res, exited := h.Poll(2 * time.Second)
	require.True(t, exited)
	require.Equal(t, 1, res.ExitCode)
}

// TestSweepChildren_NoNames is a no-op without names.
func TestSweepChildren_NoNames(t *testing.T) {
	t.Parallel()

	n, err := SweepChildren(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
