//go:build windows

package process

import "os/exec"

func configureProcessGroup(*exec.Cmd) {}

// terminate has no graceful equivalent on Windows, so the grace period simply elapses.
func terminate(*exec.Cmd) error {
	return nil
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
