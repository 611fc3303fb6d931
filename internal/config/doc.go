// Package config loads and validates the verse-gateway YAML configuration,
// with ${VAR} environment expansion and duration string parsing.
package config
