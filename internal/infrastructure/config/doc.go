// Package config provides 12-factor configuration for the loader tooling.
//
// Configuration is loaded from environment variables with sensible defaults.
// A manifest file (JSON, YAML or TOML) may refine the default loader
// configuration with an identity, extra resolution paths and a preload set.
//
// Configuration Sections:
//   - Loader: default loader id, name, module root and manifest path
//   - Logging: Log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	profile, err := cfg.Profile()
//
// Environment Variables:
//   - SDK_LOADER_ID, SDK_LOADER_NAME, SDK_ROOT, SDK_MANIFEST
//   - LOG_LEVEL, LOG_DEV
package config
