// Package config loads, normalizes, and validates filingsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FILINGSYNC_DATA_DIR. The Config type centralizes every knob the CLI and the
// sync workers need so the data directory, registry file, and fetch command are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
