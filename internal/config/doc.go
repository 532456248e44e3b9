// Package config provides configuration management for the mashup tools.
//
// This package handles:
//   - Loading and saving settings from JSON or TOML files
//   - Default configuration values
//   - Environment variable overrides (credentials, paths)
//   - Validation
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Over-fetches 5 candidate tracks
//	// 0.5s fades per segment, 2s fades on the whole mashup
//	// Tags mp3 output with ID3 metadata
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/mashup.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Files ending in ".toml" are decoded as TOML, everything else as JSON.
//
// # Environment
//
// ApplyEnv overrides file values with MASHUP_* variables. SMTP credentials
// are read from EMAIL_USER and EMAIL_PASS so they never need to live in a
// config file.
package config
