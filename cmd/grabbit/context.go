package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"grabbit/internal/cache"
	"grabbit/internal/config"
	"grabbit/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// newLogger builds the run logger from configuration, with a CLI level
// override.
func (c *commandContext) newLogger(levelOverride string, quiet bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if quiet {
		return logging.NewNop(), nil
	}
	level := cfg.Logging.Level
	if levelOverride != "" {
		level = levelOverride
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Logging.LogDir,
	})
}

// openCache constructs the configured cache backend.
func (c *commandContext) openCache() (cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	switch cfg.Cache.Backend {
	case "", "file":
		return cache.NewFileStore(cfg.Cache.Dir)
	case "sqlite":
		return cache.NewSQLiteStore(cfg.Cache.Path)
	default:
		return nil, fmt.Errorf("cache.backend: unsupported value %q", cfg.Cache.Backend)
	}
}

// statePath is where run artifacts (stored tags) land.
func (c *commandContext) statePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "grabbit")
}
