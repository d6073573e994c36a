package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/edge-alert/internal/logger"
)

// SweepChildren kills direct children of this process whose executable name
// matches one of names. It returns how many were killed.
// Handles normally leave nothing behind; this is the last line at shutdown.
func SweepChildren(ctx context.Context, names ...string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	wanted := make([]string, 0, len(names))
	for _, name := range names {
		wanted = append(wanted, filepath.Base(name))
	}

	processes, err := ps.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	self := os.Getpid()
	killed := 0

	for _, p := range processes {
		if p.PPid() != self || !slices.Contains(wanted, p.Executable()) {
			continue
		}

		proc, err := os.FindProcess(p.Pid())
		if err != nil {
			continue
		}

		if err = proc.Kill(); err != nil {
			logger.WarnKV(ctx, "Failed to kill leftover child", "pid", p.Pid(), "executable", p.Executable(), "error", err)
			continue
		}

		logger.WarnKV(ctx, "Killed leftover child process", "pid", p.Pid(), "executable", p.Executable())

		killed++
	}

	return killed, nil
}
