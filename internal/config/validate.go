package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDatastore(); err != nil {
		return err
	}
	if err := c.validateDiff(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.RepositoryDir == "" {
		return fmt.Errorf("paths.repository_dir must be set (or export %s)", RepositoryEnv)
	}
	return nil
}

func (c *Config) validateDatastore() error {
	if strings.ContainsAny(c.Datastore.Filename, `/\`) {
		return fmt.Errorf("datastore.filename %q must be a file name, not a path", c.Datastore.Filename)
	}
	return nil
}

func (c *Config) validateDiff() error {
	switch c.Diff.Key {
	case "text", "folded":
	case "attribute":
		if c.Diff.Attribute == "" {
			return errors.New("diff.attribute must be set when diff.key is \"attribute\"")
		}
	default:
		return fmt.Errorf("diff.key: unsupported value %q (want text, attribute or folded)", c.Diff.Key)
	}
	if c.Diff.Attribute != "" && !identifierPattern.MatchString(c.Diff.Attribute) {
		return fmt.Errorf("diff.attribute %q is not a valid identifier", c.Diff.Attribute)
	}
	for _, col := range c.Diff.ExtraColumns {
		if !identifierPattern.MatchString(col) {
			return fmt.Errorf("diff.extra_columns: %q is not a valid identifier", col)
		}
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.MinMatches < 1 {
		return errors.New("alignment.min_matches must be at least 1")
	}
	if c.Alignment.MaxMismatches < 0 {
		return errors.New("alignment.max_mismatches must not be negative")
	}
	if c.Alignment.MaxMismatches >= c.Alignment.MinMatches {
		return errors.New("alignment.max_mismatches must be smaller than alignment.min_matches")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
