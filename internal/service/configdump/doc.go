// Package configdump writes the effective configuration, after the file, the
// environment and the command line flags are merged, back out as YAML.
package configdump
