package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pipeline/internal/config"
	"pipeline/internal/history"
	"pipeline/internal/logging"
	"pipeline/internal/preflight"
	"pipeline/internal/project"
	"pipeline/internal/scripts"
	"pipeline/internal/workspace"
)

type commandContext struct {
	projectFlag *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	sessionID string
}

func newCommandContext(projectFlag, configFlag *string) *commandContext {
	return &commandContext{
		projectFlag: projectFlag,
		configFlag:  configFlag,
		sessionID:   logging.NewSessionID(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		def := config.Default()
		return &def
	}
	return cfg
}

// workspace resolves the project root: --project, then the nearest folder
// holding .pipeline, then project.default_root.
func (c *commandContext) workspace() (*workspace.Workspace, error) {
	if c.projectFlag != nil && strings.TrimSpace(*c.projectFlag) != "" {
		root, err := config.ExpandPath(strings.TrimSpace(*c.projectFlag))
		if err != nil {
			return nil, err
		}
		return workspace.New(root)
	}
	if ws, err := workspace.Find("."); err == nil {
		return ws, nil
	}
	if root := c.configValue().Project.DefaultRoot; root != "" {
		return workspace.New(root)
	}
	return nil, fmt.Errorf("%w: run `pipeline project init <dir>` or pass --project", workspace.ErrNotProject)
}

// projectSession is one opened project with everything wired to it.
type projectSession struct {
	ws      *workspace.Workspace
	project *project.Project
	engine  *scripts.Engine
	history *history.Store
	lock    *workspace.Lock
	logger  *slog.Logger
}

func (c *commandContext) openProject(ctx context.Context, write bool) (*projectSession, error) {
	ws, err := c.workspace()
	if err != nil {
		return nil, err
	}
	if !ws.Initialized() {
		return nil, fmt.Errorf("%w: %s (run `pipeline project init`)", workspace.ErrNotProject, ws.Root())
	}
	cfg := c.configValue()

	s := &projectSession{ws: ws}
	if write {
		if result := preflight.CheckDirectoryAccess("Project folder", ws.PipelineDir()); !result.Passed {
			return nil, fmt.Errorf("project not writable: %s", result.Detail)
		}
		if s.lock, err = ws.Lock(); err != nil {
			return nil, err
		}
	}

	logger, err := logging.NewFromConfig(cfg, ws.LogFile())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	s.logger = logging.WithSession(logger, c.sessionID)

	s.engine = scripts.NewEngine(
		scripts.WithDir(ws.CommandsDir()),
		scripts.WithLogger(s.logger),
		scripts.WithConfig(cfg),
	)
	opts := []project.Option{
		project.WithLogger(s.logger),
		project.WithConfig(cfg),
		project.WithRunner(s.engine),
	}
	if write && cfg.History.Enabled {
		store, err := history.Open(ctx, ws.HistoryFile())
		if err != nil {
			logging.WarnWithContext(s.logger, "history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this save is not recorded in history"),
				logging.String(logging.FieldErrorHint, "run `pipeline project check`"),
			)
		} else {
			s.history = store
			opts = append(opts, project.WithSaveHook(store.SaveHook(c.sessionID, cfg.History.MaxEntries, s.logger)))
		}
	}

	p, err := project.Open(ws.Backend(), opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.project = p
	return s, nil
}

func (s *projectSession) Close() {
	if s == nil {
		return
	}
	if s.history != nil {
		_ = s.history.Close()
	}
	if err := s.lock.Unlock(); err != nil && s.logger != nil {
		s.logger.Warn("failed to release project lock", logging.Error(err))
	}
}

// withProject opens the project, runs fn and, for write commands, saves.
func (c *commandContext) withProject(cmd *cobra.Command, write bool, fn func(*projectSession) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.openProject(ctx, write)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.project.Save(ctx)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// exitCode maps error classes to distinct exit statuses.
func exitCode(err error) int {
	switch project.KindOf(err) {
	case project.KindUserInput:
		return 2
	case project.KindIntegrity:
		return 3
	case project.KindPersistence:
		return 4
	}
	if errors.Is(err, workspace.ErrLocked) {
		return 5
	}
	return 1
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
