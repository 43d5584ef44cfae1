package preflight

import (
	"context"

	"pipeline/internal/config"
	"pipeline/internal/workspace"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the workspace.
func RunAll(ctx context.Context, ws *workspace.Workspace, cfg *config.Config) []Result {
	if ws == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Project folder", ws.PipelineDir()),
		CheckDirectoryAccess("Commands folder", ws.CommandsDir()),
		CheckDocument("Project document", ws.ProjectFile()),
		CheckLock("Project lock", ws),
	}
	if cfg == nil || cfg.History.Enabled {
		results = append(results, CheckHistory(ctx, "History database", ws.HistoryFile()))
	}
	if cfg != nil {
		results = append(results, CheckEngines("Script engines", cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
