// Package reassembly turns finalized capture sessions into single ordered
// artifacts.
//
// The pipeline writes an ffconcat manifest from the lexicographically sorted
// session directory, invokes the external concat tool with bounded sequential
// retries, and treats a pre-existing artifact as success so interrupted runs
// can resume without duplicating work. Exhausted jobs keep their data on disk.
package reassembly
