// Package document stores a project as one JSON object addressed by dotted
// paths such as "abstract.id.12.name".
//
// A Tree knows nothing about members or properties; it only gets, sets, and
// pops nested values. Backends read and write the whole document at once.
// FileBackend replaces the file atomically so a crash mid-save leaves the
// previous version intact.
package document
