// Package main hosts the Sluice CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the foreground capture run, catalog
// inspection, manual reassembly of preserved session directories, and
// configuration scaffolding. Keep this package lean: add new functionality by
// extending the internal packages first, then surface it through dedicated
// commands or flags here.
package main
