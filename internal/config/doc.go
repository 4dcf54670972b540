// Package config loads, normalizes, and validates clipkeeper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPKEEPER_INGEST_URL. The Config type centralizes every knob the capture
// CLI and the ingestion server need, so recordings, staging, and server
// storage directories are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
