// Package main hosts the pipeline CLI entrypoint and command graph.
//
// The Cobra-based command tree opens a project workspace, applies one change
// through internal/project and saves. It centralizes configuration
// resolution, the project lock, logging setup and the save history hook so
// subcommands only describe what they change.
//
// Add behaviour to the internal packages first and surface it here.
package main
