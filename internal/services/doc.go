// Package services defines the shared error taxonomy for Sluice components.
//
// Sentinel errors classify failures (external tool, validation, configuration,
// transient) and Wrap attaches component/operation context while preserving
// errors.Is chains.
package services
