// Package logging wraps log/slog construction and the structured field
// conventions shared across the pipeline: component names, step and
// workflow context attributes, and run correlation identifiers.
package logging
