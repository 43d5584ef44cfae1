package config

import (
	"fmt"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeProject(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeScripts()
	return nil
}

func (c *Config) normalizeProject() error {
	c.Project.Software = strings.ToLower(strings.TrimSpace(c.Project.Software))
	if c.Project.Software == "" {
		c.Project.Software = defaultSoftware
	}

	var err error
	if c.Project.DefaultRoot, err = expandPath(strings.TrimSpace(c.Project.DefaultRoot)); err != nil {
		return fmt.Errorf("project.default_root: %w", err)
	}

	order := make([]string, 0, len(c.Project.PropertiesOrder))
	for _, name := range c.Project.PropertiesOrder {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(order, name) {
			continue
		}
		order = append(order, name)
	}
	if len(order) == 0 {
		order = append(order, DefaultPropertiesOrder...)
	}
	c.Project.PropertiesOrder = order
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeScripts() {
	engines := make([]string, 0, len(c.Scripts.EnabledEngines))
	for _, engine := range c.Scripts.EnabledEngines {
		engine = strings.ToLower(strings.TrimSpace(engine))
		if engine == "" || slices.Contains(engines, engine) {
			continue
		}
		engines = append(engines, engine)
	}
	c.Scripts.EnabledEngines = engines
}
