package scripts

import (
	"context"

	"pipeline/internal/logging"
)

func defaultBuiltins(e *Engine) map[string]Builtin {
	return map[string]Builtin{
		"noop": func(context.Context, Target) error { return nil },
		// describe logs the target, handy for checking command wiring.
		"describe": func(_ context.Context, target Target) error {
			e.logger.Info("describe",
				logging.Member(target.Path()),
				logging.String("name", target.Name()),
			)
			return nil
		},
	}
}
