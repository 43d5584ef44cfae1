package property

import "errors"

var (
	// ErrInvalidVisibility reports a visibility outside public/protected/private.
	ErrInvalidVisibility = errors.New("invalid visibility")
	// ErrUnknownAttribute reports an attribute outside the property's editable allow-list.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrInvalidValue reports a value the property's kind cannot hold.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownType reports a type tag missing from the registry.
	ErrUnknownType = errors.New("unknown property type")
	// ErrMalformed reports serialized data that cannot be decoded.
	ErrMalformed = errors.New("malformed property data")
	// ErrReadOnly reports a write to a property that refuses edits.
	ErrReadOnly = errors.New("read-only property")
)
