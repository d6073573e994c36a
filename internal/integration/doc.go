// Package integration holds end-to-end tests that run the services with real
// subprocesses standing in for the siren and the speech engine.
package integration
