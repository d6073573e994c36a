// Package process runs short-lived external commands under a strict contract:
// stdout and stderr are discarded, every wait is bounded, and a process that
// outlives its deadline receives SIGTERM, a grace period, then SIGKILL.
//
// Run covers the spawn-wait-release case. Start returns a Handle for callers
// that need to probe liveness before committing to a full wait (the siren).
// A Handle must always be released; Release is idempotent, so
//
//	h, err := process.Start(ctx, spec)
//	if err != nil {
//	    return
//	}
//	defer h.Release()
//
// is the expected shape at every call site.
package process
