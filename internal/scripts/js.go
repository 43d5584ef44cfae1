package scripts

import (
	"context"
	"fmt"
	"os"

	"github.com/dop251/goja"

	"pipeline/internal/property"
)

// runJS compiles path, runs its top level and then calls execute(target).
// Cancelling ctx interrupts the runtime.
func runJS(ctx context.Context, path string, target Target) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read js: %w", err)
	}
	program, err := goja.Compile(path, string(source), false)
	if err != nil {
		return fmt.Errorf("compile js: %w", err)
	}

	vm := goja.New()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	if _, err := vm.RunProgram(program); err != nil {
		return fmt.Errorf("run js: %w", err)
	}
	execute, ok := goja.AssertFunction(vm.Get("execute"))
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoEntryPoint, path)
	}
	if _, err := execute(goja.Undefined(), jsTarget(vm, target)); err != nil {
		return fmt.Errorf("execute js: %w", err)
	}
	return nil
}

func jsTarget(vm *goja.Runtime, target Target) goja.Value {
	obj := vm.NewObject()
	_ = obj.Set("path", target.Path)
	_ = obj.Set("name", target.Name)
	_ = obj.Set("get", func(name string) any {
		value, ok := target.PropertyValue(name)
		if !ok {
			return nil
		}
		if commands, ok := value.(property.CommandMap); ok {
			return map[string]map[string][]string(commands)
		}
		return value
	})
	_ = obj.Set("set", func(name string, value goja.Value) error {
		return target.SetProperty(name, exportJS(value))
	})
	return obj
}

// exportJS maps whole floats back to int so numeric properties accept them.
func exportJS(value goja.Value) any {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil
	}
	exported := value.Export()
	if f, ok := exported.(float64); ok && f == float64(int64(f)) {
		return int(f)
	}
	if n, ok := exported.(int64); ok {
		return int(n)
	}
	return exported
}
