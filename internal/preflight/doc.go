// Package preflight checks that a project workspace is usable before the CLI
// edits it.
//
// These checks run in two contexts:
//   - Mutating CLI commands call CheckDirectoryAccess on the .pipeline
//     folder so a read-only project fails before any work is done.
//   - "pipeline project check" runs RunAll and prints every result.
//
// Checks for disabled features (history) are skipped.
package preflight
