// Package config provides configuration loading and validation for the
// meeting transcription agent. It handles YAML-based configuration with
// struct validation plus environment variable overrides so the service
// can run from a config file, the environment, or both.
package config
