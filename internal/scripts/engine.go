package scripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"

	"pipeline/internal/config"
	"pipeline/internal/logging"
)

// BuiltinPrefix marks a script reference served by a registered Go function.
const BuiltinPrefix = "builtin:"

var (
	// ErrUnsupportedScript is returned for references no engine understands.
	ErrUnsupportedScript = errors.New("unsupported script")
	// ErrEngineDisabled is returned when the engine for a reference is turned off.
	ErrEngineDisabled = errors.New("script engine disabled")
	// ErrUnknownBuiltin is returned for builtin:<name> without a registration.
	ErrUnknownBuiltin = errors.New("unknown builtin")
	// ErrNoEntryPoint is returned when a script does not define execute.
	ErrNoEntryPoint = errors.New("script has no execute function")
	// ErrScriptPanic wraps a panic recovered while running a script.
	ErrScriptPanic = errors.New("script panicked")
)

// Builtin is a Go implementation of a command script.
type Builtin func(ctx context.Context, target Target) error

// Engine dispatches script references to the builtin table, Lua or
// JavaScript. It implements Runner.
type Engine struct {
	dir      string
	enabled  map[string]bool
	builtins map[string]Builtin
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDir sets the folder relative script references are resolved against,
// normally the project's commands folder.
func WithDir(dir string) EngineOption {
	return func(e *Engine) { e.dir = dir }
}

// WithLogger sets the logger for script failures.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEngines restricts the engines that may run. Names are those of
// config.EngineBuiltin, config.EngineLua and config.EngineJS.
func WithEngines(names ...string) EngineOption {
	return func(e *Engine) {
		e.enabled = make(map[string]bool, len(names))
		for _, name := range names {
			e.enabled[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}
}

// WithBuiltin registers fn as builtin:<name>.
func WithBuiltin(name string, fn Builtin) EngineOption {
	return func(e *Engine) { e.Register(name, fn) }
}

// WithConfig applies the scripts section of cfg.
func WithConfig(cfg *config.Config) EngineOption {
	return func(e *Engine) {
		if cfg != nil {
			WithEngines(cfg.Scripts.EnabledEngines...)(e)
		}
	}
}

// NewEngine builds an Engine with every engine enabled and the default
// builtins registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		enabled: map[string]bool{
			config.EngineBuiltin: true,
			config.EngineLua:     true,
			config.EngineJS:      true,
		},
		builtins: make(map[string]Builtin),
		logger:   logging.NewNop(),
	}
	for name, fn := range defaultBuiltins(e) {
		e.builtins[name] = fn
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = logging.NewComponentLogger(e.logger, "scripts")
	return e
}

// Register adds or replaces builtin:<name>.
func (e *Engine) Register(name string, fn Builtin) {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return
	}
	e.builtins[name] = fn
}

// Builtins lists the registered builtin names.
func (e *Engine) Builtins() []string {
	return slices.Sorted(maps.Keys(e.builtins))
}

// EngineFor names the engine that would run script.
func EngineFor(script string) (string, error) {
	switch {
	case strings.HasPrefix(script, BuiltinPrefix):
		return config.EngineBuiltin, nil
	case strings.EqualFold(filepath.Ext(script), ".lua"):
		return config.EngineLua, nil
	case strings.EqualFold(filepath.Ext(script), ".js"):
		return config.EngineJS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedScript, script)
}

// Run executes script against target. Errors and panics are logged with the
// command, script and target and returned; they never escape as panics.
func (e *Engine) Run(ctx context.Context, command, script string, target Target) (err error) {
	logger := e.logger.With(
		logging.String(logging.FieldCommand, command),
		logging.String(logging.FieldScript, script),
		logging.Member(targetPath(target)),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrScriptPanic, r)
			logger.Debug("script panic stack", logging.String("stack", string(debug.Stack())))
		}
		if err != nil {
			logging.ErrorWithContext(logger, "script failed", "script_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the script; the remaining scripts of the command still run"),
			)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if target == nil {
		return errors.New("script target is nil")
	}
	engine, err := EngineFor(script)
	if err != nil {
		return err
	}
	if !e.enabled[engine] {
		return fmt.Errorf("%w: %s", ErrEngineDisabled, engine)
	}

	logger.Debug("running script", logging.String("engine", engine))
	switch engine {
	case config.EngineBuiltin:
		name := strings.TrimSpace(strings.TrimPrefix(script, BuiltinPrefix))
		fn, ok := e.builtins[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBuiltin, name)
		}
		return fn(ctx, target)
	case config.EngineLua:
		return runLua(ctx, e.resolve(script), target)
	default:
		return runJS(ctx, e.resolve(script), target)
	}
}

func (e *Engine) resolve(script string) string {
	if filepath.IsAbs(script) || e.dir == "" {
		return script
	}
	return filepath.Join(e.dir, script)
}

func targetPath(target Target) string {
	if target == nil {
		return ""
	}
	return target.Path()
}
