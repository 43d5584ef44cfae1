// Package scripts runs the command scripts attached to project members.
//
// A script reference is either builtin:<name>, served by a Go function
// registered on the Engine, or a path to a .lua or .js file relative to the
// project's commands folder. File scripts define a global execute(target)
// function; target exposes path(), name(), get(prop) and set(prop, value).
// Engine recovers panics and logs every failure, so one broken script never
// stops the rest of a command.
package scripts
