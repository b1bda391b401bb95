// Package workflow orchestrates the capture round loop and the reassembly
// worker: lanes run concurrently each round, finalized sessions become
// reassembly jobs, and finished artifacts are cataloged and optionally
// uploaded. Shutdown drains open sessions and pending jobs before returning.
package workflow
