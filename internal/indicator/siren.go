package indicator

import (
	"context"
	"time"

	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/process"
)

// sirenProbeWindow is how long the siren may take to fail before it counts as sounding.
const sirenProbeWindow = 200 * time.Millisecond

// DriveSiren runs the siren command for duration. It returns false without
// spawning anything when no siren is configured, and false when the siren
// cannot start or exits non-zero inside the probe window. Otherwise the
// siren sounds until duration elapses, it exits, or ctx is done, and
// DriveSiren returns true.
func (o *Output) DriveSiren(ctx context.Context, duration time.Duration) bool {
	if len(o.siren) == 0 {
		return false
	}

	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()

	if closed {
		return false
	}

	ctx = logger.WithName(ctx, "siren")
	deadline := time.Now().Add(duration)

	h, err := process.Start(ctx, process.Spec{
		Name:  "siren",
		Path:  o.siren[0],
		Args:  o.siren[1:],
		Grace: o.grace,
	})
	if err != nil {
		logger.WarnKV(ctx, "Siren command failed to start", "command", o.siren, "error", err)
		return false
	}

	defer h.Release()

	if res, exited := h.Poll(sirenProbeWindow); exited {
		if res.ExitCode != 0 {
			logger.WarnKV(ctx, "Siren command exited early", "command", o.siren, "exit_code", res.ExitCode)
			return false
		}

		return true
	}

	res := h.Wait(ctx, time.Until(deadline))
	if !res.TimedOut && !res.Canceled && res.ExitCode != 0 {
		logger.WarnKV(ctx, "Siren command failed mid-pulse", "exit_code", res.ExitCode, "after", res.Duration)
	}

	return true
}
