package scripts_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"pipeline/internal/config"
	"pipeline/internal/scripts"
	"pipeline/internal/testsupport"
)

type fakeTarget struct {
	path  string
	name  string
	props map[string]any
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		path:  "concrete.id.4",
		name:  "chair",
		props: map[string]any{"frames": 24, "tags": []any{"a", "b"}},
	}
}

func (f *fakeTarget) Path() string { return f.path }
func (f *fakeTarget) Name() string { return f.name }

func (f *fakeTarget) PropertyValue(name string) (any, bool) {
	v, ok := f.props[name]
	return v, ok
}

func (f *fakeTarget) SetProperty(name string, value any) error {
	if name == "locked" {
		return errors.New("property is protected")
	}
	f.props[name] = value
	return nil
}

func newEngine(t *testing.T, opts ...scripts.EngineOption) (*scripts.Engine, *testsupport.LogCapture, string) {
	t.Helper()
	logger, capture := testsupport.CaptureLogger()
	dir := t.TempDir()
	opts = append([]scripts.EngineOption{scripts.WithLogger(logger), scripts.WithDir(dir)}, opts...)
	return scripts.NewEngine(opts...), capture, dir
}

func TestEngineFor(t *testing.T) {
	tests := []struct {
		script string
		want   string
	}{
		{"builtin:describe", config.EngineBuiltin},
		{"publish.lua", config.EngineLua},
		{"tools/Export.JS", config.EngineJS},
	}
	for _, tc := range tests {
		got, err := scripts.EngineFor(tc.script)
		if err != nil || got != tc.want {
			t.Fatalf("EngineFor(%q) = %q, %v; want %q", tc.script, got, err, tc.want)
		}
	}
	if _, err := scripts.EngineFor("publish.py"); !errors.Is(err, scripts.ErrUnsupportedScript) {
		t.Fatalf("expected ErrUnsupportedScript, got %v", err)
	}
}

func TestBuiltinDispatch(t *testing.T) {
	var seen string
	engine, capture, _ := newEngine(t, scripts.WithBuiltin("stamp", func(_ context.Context, target scripts.Target) error {
		seen = target.Path()
		return target.SetProperty("stamped", true)
	}))
	target := newFakeTarget()

	if err := engine.Run(context.Background(), "publish", "builtin:stamp", target); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen != "concrete.id.4" || target.props["stamped"] != true {
		t.Fatalf("builtin did not run against the target: seen=%q props=%v", seen, target.props)
	}
	if err := engine.Run(context.Background(), "publish", "builtin:missing", target); !errors.Is(err, scripts.ErrUnknownBuiltin) {
		t.Fatalf("expected ErrUnknownBuiltin, got %v", err)
	}
	rec, ok := capture.Find(slog.LevelError, "script failed")
	if !ok {
		t.Fatal("expected the failure to be logged at error level")
	}
	if rec.Attrs["command"] != "publish" || rec.Attrs["script"] != "builtin:missing" || rec.Attrs["member"] != "concrete.id.4" {
		t.Fatalf("failure log attrs = %v", rec.Attrs)
	}
}

func TestPanicsAreRecovered(t *testing.T) {
	engine, _, _ := newEngine(t, scripts.WithBuiltin("explode", func(context.Context, scripts.Target) error {
		panic("kaboom")
	}))
	err := engine.Run(context.Background(), "publish", "builtin:explode", newFakeTarget())
	if !errors.Is(err, scripts.ErrScriptPanic) {
		t.Fatalf("expected ErrScriptPanic, got %v", err)
	}
}

func TestDisabledEngineIsRefused(t *testing.T) {
	cfg := config.Default()
	cfg.Scripts.EnabledEngines = []string{config.EngineBuiltin}
	engine, _, dir := newEngine(t, scripts.WithConfig(&cfg))
	testsupport.WriteFile(t, filepath.Join(dir, "noop.lua"), "function execute(target) end\n")

	if err := engine.Run(context.Background(), "publish", "noop.lua", newFakeTarget()); !errors.Is(err, scripts.ErrEngineDisabled) {
		t.Fatalf("expected ErrEngineDisabled, got %v", err)
	}
	if err := engine.Run(context.Background(), "publish", "builtin:noop", newFakeTarget()); err != nil {
		t.Fatalf("builtin should still run: %v", err)
	}
}

func TestLuaScript(t *testing.T) {
	engine, _, dir := newEngine(t)
	testsupport.WriteFile(t, filepath.Join(dir, "bump.lua"), `
function execute(target)
  local frames = target:get("frames")
  target:set("frames", frames + 1)
  target:set("label", target:name() .. "@" .. target:path())
  target:set("count", #target:get("tags"))
end
`)
	target := newFakeTarget()
	if err := engine.Run(context.Background(), "bump", "bump.lua", target); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if target.props["frames"] != 25 {
		t.Fatalf("frames = %#v, want 25", target.props["frames"])
	}
	if target.props["label"] != "chair@concrete.id.4" {
		t.Fatalf("label = %#v", target.props["label"])
	}
	if target.props["count"] != 2 {
		t.Fatalf("count = %#v, want 2", target.props["count"])
	}
}

func TestLuaFailures(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{name: "runtime error", source: "function execute(target) error(\"boom\") end\n"},
		{name: "rejected set", source: "function execute(target) target:set(\"locked\", 1) end\n"},
		{name: "syntax error", source: "function execute(target\n"},
		{name: "no entry point", source: "local x = 1\n", want: scripts.ErrNoEntryPoint},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, _, dir := newEngine(t)
			testsupport.WriteFile(t, filepath.Join(dir, "broken.lua"), tc.source)
			err := engine.Run(context.Background(), "publish", "broken.lua", newFakeTarget())
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestJSScript(t *testing.T) {
	engine, _, dir := newEngine(t)
	testsupport.WriteFile(t, filepath.Join(dir, "bump.js"), `
function execute(target) {
  target.set("frames", target.get("frames") + 1);
  target.set("label", target.name() + "@" + target.path());
  target.set("ratio", 0.5);
}
`)
	target := newFakeTarget()
	if err := engine.Run(context.Background(), "bump", "bump.js", target); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if target.props["frames"] != 25 {
		t.Fatalf("frames = %#v, want 25", target.props["frames"])
	}
	if target.props["label"] != "chair@concrete.id.4" {
		t.Fatalf("label = %#v", target.props["label"])
	}
	if target.props["ratio"] != 0.5 {
		t.Fatalf("ratio = %#v, want 0.5", target.props["ratio"])
	}
}

func TestJSFailures(t *testing.T) {
	engine, _, dir := newEngine(t)
	testsupport.WriteFile(t, filepath.Join(dir, "throw.js"), "function execute(t) { throw new Error('boom'); }\n")
	testsupport.WriteFile(t, filepath.Join(dir, "locked.js"), "function execute(t) { t.set('locked', 1); }\n")
	testsupport.WriteFile(t, filepath.Join(dir, "empty.js"), "var x = 1;\n")

	for _, script := range []string{"throw.js", "locked.js", "missing.js"} {
		if err := engine.Run(context.Background(), "publish", script, newFakeTarget()); err == nil {
			t.Fatalf("%s: expected an error", script)
		}
	}
	if err := engine.Run(context.Background(), "publish", "empty.js", newFakeTarget()); !errors.Is(err, scripts.ErrNoEntryPoint) {
		t.Fatalf("expected ErrNoEntryPoint, got %v", err)
	}
}

func TestCancelledContextSkipsScript(t *testing.T) {
	engine, _, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := engine.Run(ctx, "publish", "builtin:noop", newFakeTarget()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
