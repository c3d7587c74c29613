// Package config loads, normalizes, and validates annotcore configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the ANNOTCORE_REPOSITORY environment override. The
// Config type centralizes the repository location, diff and alignment
// defaults, batch cadence and logging so the CLI and batch passes discover
// them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
