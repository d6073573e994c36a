package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/oshokin/edge-alert/internal/logger"
)

const (
	// DefaultGrace is how long a terminated process may take to exit before it is killed.
	DefaultGrace = time.Second

	// reapTimeout bounds the wait for the exit status after SIGKILL.
	reapTimeout = 2 * time.Second
)

// ErrNoCommand is returned by Start when Spec.Path is empty.
var ErrNoCommand = errors.New("command is empty")

// Spec describes one invocation.
type Spec struct {
	// Name labels the process in logs (siren, piper, player...).
	Name string
	// Path is the executable, resolved through PATH when it has no separator.
	Path string
	// Args are the arguments after Path.
	Args []string
	// Stdin is fed to the process when set; stdin is empty otherwise.
	Stdin io.Reader
	// Timeout bounds Run. Zero or negative means the process is torn down at once.
	Timeout time.Duration
	// Grace is the delay between SIGTERM and SIGKILL. Defaults to DefaultGrace.
	Grace time.Duration
}

// Result reports how an invocation ended.
type Result struct {
	// ExitCode is the process exit code, or -1 when it never started or was signaled.
	ExitCode int
	// TimedOut is set when the deadline passed and the process was torn down.
	TimedOut bool
	// Canceled is set when the context ended the wait.
	Canceled bool
	// Err is the start error, if any.
	Err error
	// Duration is the time from start to the end of the wait.
	Duration time.Duration
}

// OK reports a natural exit with code 0.
func (r Result) OK() bool {
	return r.Err == nil && !r.TimedOut && !r.Canceled && r.ExitCode == 0
}

// Handle owns one spawned process.
type Handle struct {
	name  string
	cmd   *exec.Cmd
	grace time.Duration
	start time.Time

	// done is closed once cmd.Wait returns; exitErr is valid after that.
	done    chan struct{}
	exitErr error

	releaseOnce sync.Once
}

// Run starts the process described by spec and waits for it at most spec.Timeout.
// The process is always gone when Run returns.
func Run(ctx context.Context, spec Spec) Result {
	h, err := Start(ctx, spec)
	if err != nil {
		return Result{ExitCode: -1, Err: err}
	}

	defer h.Release()

	return h.Wait(ctx, spec.Timeout)
}

// Start spawns the process and returns its handle.
// The caller must call Release on every path.
func Start(ctx context.Context, spec Spec) (*Handle, error) {
	if spec.Path == "" {
		return nil, ErrNoCommand
	}

	grace := spec.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	//nolint:gosec // Commands come from the operator's configuration or a fixed probe list.
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	h := &Handle{
		name:  spec.Name,
		cmd:   cmd,
		grace: grace,
		start: time.Now(),
		done:  make(chan struct{}),
	}

	go func() {
		h.exitErr = cmd.Wait()
		close(h.done)
	}()

	logger.DebugKV(ctx, "Process started", "name", spec.Name, "pid", cmd.Process.Pid)

	return h, nil
}

// PID returns the operating system process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Poll waits up to window for the process to exit on its own.
// It returns the result and true if it exited, or false if it is still running.
// Poll never tears the process down.
func (h *Handle) Poll(window time.Duration) (Result, bool) {
	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.exitResult(), true
	case <-timer.C:
		return Result{}, false
	}
}

// Wait waits for natural exit for at most timeout, or until ctx is done.
// On timeout or cancellation the process is torn down before Wait returns.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration) Result {
	if timeout <= 0 {
		select {
		case <-h.done:
			return h.exitResult()
		default:
		}

		h.teardown(ctx)

		return h.result(true, false)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.exitResult()
	case <-timer.C:
		logger.DebugKV(ctx, "Process deadline reached", "name", h.name, "timeout", timeout)
		h.teardown(ctx)

		return h.result(true, false)
	case <-ctx.Done():
		h.teardown(ctx)

		return h.result(false, true)
	}
}

// Release tears the process down if it is still alive. Safe to call many times.
func (h *Handle) Release() {
	h.teardown(context.Background())
}

// teardown terminates, then kills, the process group. Runs at most once.
func (h *Handle) teardown(ctx context.Context) {
	h.releaseOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		pid := h.cmd.Process.Pid

		if err := terminate(h.cmd); err != nil {
			logger.DebugKV(ctx, "SIGTERM failed", "name", h.name, "pid", pid, "error", err)
		}

		grace := time.NewTimer(h.grace)
		defer grace.Stop()

		select {
		case <-h.done:
			logger.DebugKV(ctx, "Process terminated", "name", h.name, "pid", pid)
			return
		case <-grace.C:
		}

		logger.WarnKV(ctx, "Process ignored SIGTERM, killing", "name", h.name, "pid", pid, "grace", h.grace)

		if err := kill(h.cmd); err != nil {
			logger.WarnKV(ctx, "SIGKILL failed", "name", h.name, "pid", pid, "error", err)
		}

		reap := time.NewTimer(reapTimeout)
		defer reap.Stop()

		select {
		case <-h.done:
		case <-reap.C:
			logger.ErrorKV(ctx, "Process not reaped after SIGKILL", "name", h.name, "pid", pid)
		}
	})
}

// exitResult builds the result of a natural exit. h.done must be closed.
func (h *Handle) exitResult() Result {
	return h.result(false, false)
}

func (h *Handle) result(timedOut, canceled bool) Result {
	res := Result{
		ExitCode: -1,
		TimedOut: timedOut,
		Canceled: canceled,
		Duration: time.Since(h.start),
	}

	select {
	case <-h.done:
	default:
		return res
	}

	if state := h.cmd.ProcessState; state != nil {
		res.ExitCode = state.ExitCode()
	} else if h.exitErr != nil {
		res.Err = h.exitErr
	}

	return res
}
