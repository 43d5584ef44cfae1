// Package config loads, normalizes, and validates pipeline configuration.
//
// Settings come from a TOML file (./pipeline.toml, then
// ~/.config/pipeline/config.toml) with PIPELINE_* environment variables layered
// on top. Always obtain settings through Load so callers receive expanded
// paths, canonical log formats, and clear validation errors.
package config
