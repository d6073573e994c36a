// Package logger wraps zap for the edge alert binaries:
//   - a global sugared logger writing a console encoding to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - printf and key-value shortcuts (Infof, WarnKV, etc.).
//
// Components receive a context and pull the logger from it, so every line
// carries the component name and any fields attached upstream.
package logger
