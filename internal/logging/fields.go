package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a warning or error so it can be grepped for.
	FieldEventType = "event_type"
	// FieldErrorHint tells the user what to do next.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the ErrorKind of a classified error.
	FieldErrorKind = "error_kind"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldMember is the project path of the member an entry concerns (concept.id.3).
	FieldMember = "member"
	// FieldProperty is the property name an entry concerns.
	FieldProperty = "property"
	// FieldCommand is the command name being called.
	FieldCommand = "command"
	// FieldScript is the script reference being executed.
	FieldScript = "script"
	// FieldSoftware is the software whose command table is in use.
	FieldSoftware = "software"
	// FieldProject is the project root.
	FieldProject = "project"
	// FieldSessionID is the standardized structured logging key for CLI session identifiers.
	FieldSessionID = "session_id"
)
