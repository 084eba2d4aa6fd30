// Package config loads and validates the streamer configuration from a YAML
// file, environment overrides, and CLI flag merges applied by the caller.
package config
