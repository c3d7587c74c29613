package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RepositoryEnv overrides paths.repository_dir when set.
const RepositoryEnv = "ANNOTCORE_REPOSITORY"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatastore()
	c.normalizeDiff()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(RepositoryEnv); ok && strings.TrimSpace(value) != "" {
		c.Paths.RepositoryDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.RepositoryDir, err = expandPath(strings.TrimSpace(c.Paths.RepositoryDir)); err != nil {
		return fmt.Errorf("paths.repository_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" && c.Paths.RepositoryDir != "" {
		c.Paths.MediaDir = filepath.Join(c.Paths.RepositoryDir, defaultMediaSubdir)
	}
	if c.Paths.MediaDir, err = expandPath(strings.TrimSpace(c.Paths.MediaDir)); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatastore() {
	c.Datastore.Filename = strings.TrimSpace(c.Datastore.Filename)
	if c.Datastore.Filename == "" {
		c.Datastore.Filename = defaultDatastoreFile
	}
}

func (c *Config) normalizeDiff() {
	c.Diff.Key = strings.ToLower(strings.TrimSpace(c.Diff.Key))
	if c.Diff.Key == "" {
		c.Diff.Key = defaultDiffKey
	}
	c.Diff.Attribute = strings.TrimSpace(c.Diff.Attribute)
	columns := c.Diff.ExtraColumns[:0]
	for _, col := range c.Diff.ExtraColumns {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	c.Diff.ExtraColumns = columns
}

func (c *Config) normalizeBatch() {
	if c.Batch.YieldEvery <= 0 {
		c.Batch.YieldEvery = defaultYieldEvery
	}
	if c.Batch.ProgressBucket <= 0 {
		c.Batch.ProgressBucket = defaultProgressBucket
	}
	c.Batch.ReportPath = strings.TrimSpace(c.Batch.ReportPath)
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
