// Package workspace maps a project root to its files: the .pipeline folder
// with project.json, log.log, project.lock and history.db, plus the commands
// folder that relative script references resolve against.
package workspace
