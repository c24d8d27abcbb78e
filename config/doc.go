// Package config loads ringwatch configuration.
//
// A Loader starts from Defaults, merges each file layer in order, then applies
// environment overrides and, when enabled, validation:
//
//	loader := config.NewLoader()
//	loader.AddLayer("ringwatch.yaml")
//	loader.AddLayer("ringwatch.local.json") // overrides the first layer
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//
// Files may be JSON or YAML, chosen by extension. Only keys present in a layer
// override earlier values. Durations (window.max_age, report.interval) are
// written as strings such as "30s" or "2d".
//
// Environment variables named PREFIX_SECTION_FIELD override file values, with
// PREFIX defaulting to RINGWATCH:
//
//	RINGWATCH_BUFFER_CAPACITY=4096
//	RINGWATCH_BUFFER_OVERFLOW_POLICY=block
//	RINGWATCH_WINDOW_MAX_AGE=2m
//	RINGWATCH_SAMPLER_SOURCE=stdin
//	RINGWATCH_METRICS_PORT=0
//
// A malformed override is an error, not a silent fallback.
//
// # Security
//
// Config files are read through the same checks for every layer: the path must
// not escape the working directory through parent references, must name a
// regular file no larger than 10MB, and JSON input is rejected past a fixed
// nesting depth before it is decoded.
//
// # Thread Safety
//
// SafeConfig holds the active configuration for readers on other goroutines.
// Update validates before swapping; Get returns a copy.
package config
