// Package config provides configuration loading and validation for the
// bridge daemon. It handles YAML-based configuration with per-section
// validation.
package config
