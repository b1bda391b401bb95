// Package capture implements the per-lane capture state machine: binding
// lanes to targets, intercepting and deduplicating segment fetches, merging
// recurring targets into their open session through a shared registry, and
// closing sessions on idle or age limits.
//
// Segment files are named with a monotonically increasing arrival prefix, so
// sorting a session directory lexicographically reproduces exact arrival
// order regardless of source sequence numbering.
package capture
