// Package project implements the pipeline project store: concepts, abstract
// steps and concrete steps kept in one JSON document, linked by
// super-member inheritance.
//
// A Member holds its own properties and resolves the rest through its
// super-member chain, filtered by visibility. Edits to inherited PUBLIC
// properties become local overrides; overrides equal to the inherited value
// are compacted away. Changes propagate to sub-members through observers.
//
// Project owns the document, the identity map of members and the dirty set.
// Save writes the whole document atomically through a document.Backend and
// rebuilds the concrete path index. Errors are classified as user input,
// integrity or persistence failures; see Error and KindOf.
package project
