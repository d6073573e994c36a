// Package version exposes build metadata for edge-alert.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
// When they are left at their defaults, the VCS stamp embedded by the Go
// toolchain fills in what it can.
package version
