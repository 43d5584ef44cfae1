package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateScripts(); err != nil {
		return err
	}
	return c.validateHistory()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateScripts() error {
	for _, engine := range c.Scripts.EnabledEngines {
		switch engine {
		case EngineBuiltin, EngineLua, EngineJS:
		default:
			return fmt.Errorf("scripts.enabled_engines: unknown engine %q", engine)
		}
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && c.History.MaxEntries < 1 {
		return errors.New("history.max_entries must be positive when history is enabled")
	}
	return nil
}
