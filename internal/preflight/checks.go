package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"pipeline/internal/config"
	"pipeline/internal/document"
	"pipeline/internal/history"
	"pipeline/internal/workspace"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDocument verifies that the project document parses. A missing
// document passes; the first save creates it.
func CheckDocument(name, path string) Result {
	tree, existed, err := document.Load(document.NewFileBackend(path))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !existed {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d top-level keys)", path, len(tree.Keys("")))}
}

// CheckLock verifies that no other process holds the project lock.
func CheckLock(name string, ws *workspace.Workspace) Result {
	lock, err := ws.Lock()
	if err != nil {
		if errors.Is(err, workspace.ErrLocked) {
			return Result{Name: name, Detail: "held by another process"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	if err := lock.Unlock(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error releasing lock: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: "free"}
}

// CheckHistory verifies that the history database opens with the current schema.
func CheckHistory(ctx context.Context, name, path string) Result {
	store, err := history.Open(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: summarizeHistoryError(path, err)}
	}
	defer store.Close()
	entries, err := store.List(ctx, 0)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d saves)", path, len(entries))}
}

// CheckEngines reports which script engines are enabled.
func CheckEngines(name string, cfg *config.Config) Result {
	if len(cfg.Scripts.EnabledEngines) == 0 {
		return Result{Name: name, Detail: "none enabled; commands cannot run"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(cfg.Scripts.EnabledEngines, ", ")}
}

func summarizeHistoryError(path string, err error) string {
	if errors.Is(err, history.ErrSchemaMismatch) {
		return fmt.Sprintf("%s (error: schema mismatch, delete the file to start over)", path)
	}
	return fmt.Sprintf("%s (error: %v)", path, err)
}
