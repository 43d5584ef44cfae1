// Package history keeps a SQLite log of project saves in
// .pipeline/history.db. Each row holds the full document as written, so any
// earlier state of a project can be inspected or restored by hand.
package history
