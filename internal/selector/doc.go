// Package selector resolves which target each capture lane should watch.
//
// The selection logic itself lives in an external service; this package only
// carries the contract and two implementations: an HTTP client for the remote
// service and a static list for fixed deployments and tests.
package selector
