package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pipeline/internal/preflight"
	"pipeline/internal/testsupport"
	"pipeline/internal/workspace"
)

func TestCheckDirectoryAccess(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		path string
		pass bool
	}{
		{name: "writable dir", path: t.TempDir(), pass: true},
		{name: "missing", path: filepath.Join(t.TempDir(), "nope")},
		{name: "file", path: file},
	}
	for _, tc := range tests {
		result := preflight.CheckDirectoryAccess("test", tc.path)
		if result.Passed != tc.pass {
			t.Fatalf("%s: passed = %v, want %v (%s)", tc.name, result.Passed, tc.pass, result.Detail)
		}
		if result.Detail == "" {
			t.Fatalf("%s: expected non-empty detail", tc.name)
		}
	}
}

func TestCheckDocument(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	testsupport.WriteFile(t, good, `{"concept":{},"global":{}}`)
	testsupport.WriteFile(t, bad, `{"concept":`)

	if r := preflight.CheckDocument("doc", good); !r.Passed {
		t.Fatalf("good document failed: %s", r.Detail)
	}
	if r := preflight.CheckDocument("doc", filepath.Join(dir, "missing.json")); !r.Passed {
		t.Fatalf("missing document should pass: %s", r.Detail)
	}
	if r := preflight.CheckDocument("doc", bad); r.Passed {
		t.Fatal("corrupt document passed")
	}
}

func TestCheckLockDetectsHolder(t *testing.T) {
	ws, err := workspace.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if r := preflight.CheckLock("lock", ws); !r.Passed {
		t.Fatalf("free lock reported busy: %s", r.Detail)
	}
	held, err := ws.Lock()
	if err != nil {
		t.Fatal(err)
	}
	defer held.Unlock()
	if r := preflight.CheckLock("lock", ws); r.Passed {
		t.Fatal("held lock reported free")
	}
}

func TestRunAll(t *testing.T) {
	ws, err := workspace.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(10))
	results := preflight.RunAll(context.Background(), ws, cfg)
	if len(results) != 6 {
		t.Fatalf("RunAll returned %d results, want 6", len(results))
	}
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithEngines())
	results = preflight.RunAll(context.Background(), ws, cfg)
	if len(results) != 5 {
		t.Fatalf("history disabled: %d results, want 5", len(results))
	}
	if failed := preflight.Failed(results); len(failed) != 1 || failed[0].Name != "Script engines" {
		t.Fatalf("expected only the engine check to fail, got %+v", failed)
	}
	if preflight.RunAll(context.Background(), nil, cfg) != nil {
		t.Fatal("nil workspace should yield no results")
	}
}
