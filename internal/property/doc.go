// Package property implements the typed value cells owned by pipeline members.
//
// A Property carries a name, an immutable type tag, a value, a visibility
// (public, protected, private) and a display flag. Mutations notify observers
// synchronously and in registration order, which is how members learn that
// they must persist or refresh. The Registry maps type tags to kinds and is
// the single place that turns serialized Data back into live properties.
//
// Equality is structural: two properties are equal when their serialized
// forms are byte-identical. Members rely on this to drop local overrides that
// carry nothing beyond what the super-member already provides.
package property
