package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"pipeline/internal/workspace"
)

type cliTestEnv struct {
	projectDir string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "pipeline", "config.toml")
	writeTestConfig(t, configPath, true)

	env := &cliTestEnv{
		projectDir: filepath.Join(base, "show"),
		configPath: configPath,
	}
	if _, _, err := runCLI(t, []string{"project", "init", env.projectDir}, "", configPath); err != nil {
		t.Fatalf("project init: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, projectDir, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if projectDir != "" {
		flags = append(flags, "--project", projectDir)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := runCLI(t, args, env.projectDir, env.configPath)
	if err != nil {
		t.Fatalf("pipeline %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func writeTestConfig(t *testing.T, path string, history bool) {
	t.Helper()
	content := "[logging]\nlevel = \"error\"\nproject_log = false\n\n" +
		"[history]\nenabled = " + strconv.FormatBool(history) + "\nmax_entries = 5\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}

func TestProjectInitCreatesLayout(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, path := range []string{
		filepath.Join(env.projectDir, workspace.PipelineDir, workspace.ProjectFile),
		filepath.Join(env.projectDir, workspace.CommandsDir, "describe.lua"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}

	out := env.run(t, "project", "info")
	requireContains(t, out, "Software:  linux")
	requireContains(t, out, "Concept:")

	out = env.run(t, "project", "check")
	requireContains(t, out, "Project document")
	if strings.Contains(out, "[FAIL]") {
		t.Fatalf("unexpected failing check:\n%s", out)
	}
}

func TestMemberInheritanceThroughCLI(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, env.run(t, "concept", "add", "--name", "hero"), "Added concept.id.1 (hero)")
	env.run(t, "member", "create", "concept.id.1", "int", "fps", "24")
	requireContains(t, env.run(t, "concept", "add", "--super", "concept.id.1"), "Added concept.id.2")

	if got := strings.TrimSpace(env.run(t, "member", "get", "concept.id.2", "fps")); got != "24" {
		t.Fatalf("inherited fps = %q, want 24", got)
	}

	env.run(t, "member", "set", "concept.id.2", "fps", "30")
	if got := strings.TrimSpace(env.run(t, "member", "get", "concept.id.1", "fps")); got != "24" {
		t.Fatalf("super fps = %q, want 24 after override on sub", got)
	}

	out := env.run(t, "member", "show", "concept.id.2", "--json")
	var view memberView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode member show: %v\n%s", err, out)
	}
	sources := map[string]string{}
	for _, prop := range view.Properties {
		sources[prop.Name] = prop.Source
	}
	if sources["fps"] != "local" || sources["name"] != "inherited" {
		t.Fatalf("unexpected sources: %v", sources)
	}

	env.run(t, "member", "unset", "concept.id.2", "fps")
	if got := strings.TrimSpace(env.run(t, "member", "get", "concept.id.2", "fps")); got != "24" {
		t.Fatalf("fps after unset = %q, want 24", got)
	}

	requireContains(t, env.run(t, "member", "list", "concept"), "concept.id.2")
}

func TestCommandsRunThroughCLI(t *testing.T) {
	env := setupCLITestEnv(t)

	env.run(t, "step", "add", "--type", "asset", "--name", "{type}{id}")
	env.run(t, "command", "add", "abstract.id.1", "describe", "builtin:describe", "describe.lua")
	requireContains(t, env.run(t, "concrete", "add", "abstract.id.1"), "Added concrete.id.1")

	out := env.run(t, "command", "list", "concrete.id.1")
	requireContains(t, out, "builtin:describe, describe.lua")

	requireContains(t, env.run(t, "call", "concrete.id.1", "describe"), "Called describe")

	_, _, err := runCLI(t, []string{"call", "concrete.id.1", "publish"}, env.projectDir, env.configPath)
	if err == nil {
		t.Fatal("expected calling an unknown command to fail")
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}

	if _, _, err := runCLI(t, []string{"command", "add", "abstract.id.1", "x", "script.py"}, env.projectDir, env.configPath); err == nil {
		t.Fatal("expected unsupported script to be refused")
	}
}

func TestHistoryRecordsSaves(t *testing.T) {
	env := setupCLITestEnv(t)

	env.run(t, "concept", "add")
	env.run(t, "concept", "add")

	out := env.run(t, "history", "list")
	requireContains(t, out, "concept.id.2")
	requireContains(t, out, "concept.id.1")

	out = env.run(t, "history", "show", "2", "--document")
	requireContains(t, out, `"concept"`)

	if _, _, err := runCLI(t, []string{"history", "show", "99"}, env.projectDir, env.configPath); err == nil {
		t.Fatal("expected missing save to fail")
	}
}

func TestHistoryDisabled(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, false)
	projectDir := filepath.Join(base, "show")

	if _, _, err := runCLI(t, []string{"project", "init", projectDir}, "", configPath); err != nil {
		t.Fatalf("project init: %v", err)
	}
	if _, _, err := runCLI(t, []string{"concept", "add"}, projectDir, configPath); err != nil {
		t.Fatalf("concept add: %v", err)
	}
	_, _, err := runCLI(t, []string{"history", "list"}, projectDir, configPath)
	if !errors.Is(err, errNoHistory) {
		t.Fatalf("history list error = %v, want %v", err, errNoHistory)
	}
}

func TestErrorsMapToExitCodes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.run(t, "concept", "add")
	env.run(t, "concept", "add", "--super", "concept.id.1")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing member", args: []string{"member", "get", "concept.id.9", "name"}, want: 2},
		{name: "cycle", args: []string{"member", "super", "concept.id.1", "concept.id.2"}, want: 3},
		{name: "sticky delete", args: []string{"member", "unset", "concept.id.2", "super_member"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.projectDir, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := exitCode(err); got != tt.want {
				t.Fatalf("exit code = %d, want %d (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestNoProjectIsReported(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, true)

	_, _, err := runCLI(t, []string{"member", "list"}, base, configPath)
	if !errors.Is(err, workspace.ErrNotProject) {
		t.Fatalf("error = %v, want %v", err, workspace.ErrNotProject)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.run(t, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out = env.run(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected existing config to be refused without --overwrite")
	}

	requireContains(t, env.run(t, "config", "show"), "max_entries = 5")
}
