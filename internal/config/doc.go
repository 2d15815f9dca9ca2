// Package config loads, normalizes, and validates briefings configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANTHROPIC_API_KEY, ELEVEN_LABS_API_KEY, and DATA_DIR, optionally sourced
// from a .env file. The Config type centralizes every knob the daemon and CLI
// need so data directories and service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
