// Package config defines the alert configuration of the edge appliance and
// loads it from three layers: an optional YAML file, an optional .env file,
// and EDGE_* environment variables, in increasing priority.
//
// Invalid values never abort startup: Validate replaces them with safe
// defaults and logs a warning for each correction.
package config
