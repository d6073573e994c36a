// Package watch runs the long-lived alert loop: it reads hazard events as
// JSON lines, dispatches each one to the alert output and releases the
// hardware exactly once when the input ends or the process is signaled.
package watch
