// Package daemon supervises the long-running capture process: it enforces a
// single instance per machine via a lock file and owns the lifecycle of the
// workflow manager and catalog store.
package daemon
