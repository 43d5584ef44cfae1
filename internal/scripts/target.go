package scripts

import "context"

// Target is the member a script runs against.
type Target interface {
	Path() string
	Name() string
	PropertyValue(name string) (any, bool)
	SetProperty(name string, value any) error
}

// Runner executes one script reference for a command. Implementations must
// not panic; failures come back as errors the caller logs and skips.
type Runner interface {
	Run(ctx context.Context, command, script string, target Target) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, command, script string, target Target) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, command, script string, target Target) error {
	return f(ctx, command, script, target)
}
