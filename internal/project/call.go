package project

import (
	"context"
	"fmt"

	"pipeline/internal/logging"
)

// Call runs every script of the (software, command) entry of the effective
// commands map against m. A missing command or a rule denying it is a soft
// error. Script failures are contained by the runner and only counted, so
// one broken script never stops the others.
func (m *Member) Call(ctx context.Context, command string) error {
	software := m.project.software
	scripts, ok := m.scripts(command)
	if !ok {
		return m.reject("call", fmt.Errorf("%w: %s/%s", ErrMissingCommand, software, command),
			logging.String(logging.FieldCommand, command),
			logging.String(logging.FieldSoftware, software),
		)
	}
	if !m.Allowed(command) {
		return m.reject("call", fmt.Errorf("%w: %s", ErrRuleDenied, command),
			logging.String(logging.FieldCommand, command),
		)
	}
	if m.project.runner == nil {
		return m.reject("call", fmt.Errorf("%w: no script runner configured", ErrMissingCommand),
			logging.String(logging.FieldCommand, command),
		)
	}

	logger := m.logger().With(logging.String(logging.FieldCommand, command), logging.String(logging.FieldSoftware, software))
	logger.Info("calling command", logging.Int("scripts", len(scripts)))
	failed := 0
	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.project.runner.Run(ctx, command, script, m); err != nil {
			failed++
		}
	}
	if failed > 0 {
		logging.WarnWithContext(logger, "command finished with script failures", "command_partial",
			logging.Int("failed", failed),
			logging.Int("scripts", len(scripts)),
			logging.String(logging.FieldImpact, "remaining scripts still ran"),
			logging.String(logging.FieldErrorHint, "see the script errors above"),
		)
		return nil
	}
	logger.Debug("command finished")
	return nil
}

func (m *Member) scripts(command string) ([]string, bool) {
	prop, ok := m.resolve("commands")
	if !ok {
		return nil, false
	}
	return prop.Scripts(m.project.software, command)
}
