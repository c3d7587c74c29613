package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"annotcore/internal/config"
	"annotcore/internal/logging"
	"annotcore/internal/repository"
)

type commandContext struct {
	configFlag *string
	repoFlag   *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, repoFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		repoFlag:   repoFlag,
		jsonFlag:   jsonFlag,
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
		if c.repoFlag != nil && strings.TrimSpace(*c.repoFlag) != "" {
			repo, err := config.ExpandPath(strings.TrimSpace(*c.repoFlag))
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Paths.RepositoryDir = repo
			cfg.Paths.MediaDir = filepath.Join(repo, "media")
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// loggerValue builds the stderr logger once; it falls back to a no-op
// logger when the configuration cannot produce one.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// withRepository opens the configured corpus, or dir when given, and
// closes it once fn returns.
func (c *commandContext) withRepository(cmd *cobra.Command, dir string, fn func(*repository.Repository) error) error {
	if dir == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return err
		}
		dir = cfg.Paths.RepositoryDir
	} else {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return err
		}
		dir = expanded
	}
	repo, err := repository.Open(commandCtx(cmd), dir, c.loggerValue())
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
