// Package logging assembles the structured slog loggers used across Sluice.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes standardized field keys so lane workers and the
// reassembly worker tag their lines consistently. Prefer these constructors
// over hand-rolled slog setup.
package logging
