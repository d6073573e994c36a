// Package common holds helpers shared by several services.
//
// It loads the alert configuration with command line overrides, builds the
// alert controller from it and detects the local actor for startup logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
