// Package config loads and validates the pipeline configuration. The file
// on disk is a nested mapping (TOML or YAML); templates address it through
// dotted config.* paths, so the raw map is kept alongside the typed view
// the runner uses.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Workflow names an ordered step sequence and the request shape it serves.
type Workflow struct {
	Name  string            `json:"name"`
	Match map[string]string `json:"match,omitempty"`
	Steps []string          `json:"steps"`
}

// RetryDefaults are the workflow-level retry settings steps inherit.
type RetryDefaults struct {
	Retries             int     `json:"retries"`
	RetryBackoffSeconds float64 `json:"retry_backoff_seconds"`
	MaxBackoffSeconds   float64 `json:"max_backoff_seconds"`
}

// CacheSettings selects and locates the cache backend.
type CacheSettings struct {
	Backend string `json:"backend"`
	Dir     string `json:"dir"`
	Path    string `json:"path"`
}

// LoggingSettings mirror the logging package options.
type LoggingSettings struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	LogDir string `json:"log_dir"`
}

// Config is the typed view of the merged configuration. Steps stay as raw
// maps: their contents belong to the individual step implementations and
// to template resolution, not to the loader.
type Config struct {
	PreSteps        []string                  `json:"pre_steps"`
	DefaultWorkflow string                    `json:"default_workflow"`
	Workflows       []Workflow                `json:"workflows"`
	Steps           map[string]map[string]any `json:"steps"`
	Retries         RetryDefaults             `json:"retries"`
	Cache           CacheSettings             `json:"cache"`
	Logging         LoggingSettings           `json:"logging"`

	// Raw is the merged configuration mapping, retained for config.*
	// template lookups.
	Raw map[string]any `json:"-"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/grabbit/config.toml")
}

// Load reads, merges, and validates configuration. A missing file yields
// the defaults. Secrets from a sibling secrets file override the main
// file; ${ENV:NAME} references resolve from the environment last.
func Load(path string) (*Config, string, bool, error) {
	raw := DefaultRaw()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		fileRaw, err := decodeFile(resolvedPath)
		if err != nil {
			return nil, "", false, err
		}
		raw = deepMerge(raw, fileRaw).(map[string]any)

		if secretsFile, ok := findSecrets(resolvedPath); ok {
			secretsRaw, err := decodeFile(secretsFile)
			if err != nil {
				return nil, "", false, err
			}
			raw = deepMerge(raw, secretsRaw).(map[string]any)
		}
	}

	raw = resolveEnvValues(raw).(map[string]any)

	if err := validateSchema(raw); err != nil {
		return nil, "", false, err
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// fromRaw projects the merged mapping into the typed view.
func fromRaw(raw map[string]any) (*Config, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(encoded, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Raw = raw
	return cfg, nil
}

func decodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		raw = normalizeYAML(raw).(map[string]any)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return raw, nil
}

// normalizeYAML rewrites yaml.v3 decoding artifacts (map[any]any under
// nested sequences) into the map[string]any shape the rest of the system
// assumes.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprintf("%v", key)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return value
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{
		defaultPath,
		strings.TrimSuffix(defaultPath, ".toml") + ".yaml",
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// findSecrets looks for a secrets file next to the config file, matching
// its format.
func findSecrets(configPath string) (string, bool) {
	dir := filepath.Dir(configPath)
	for _, name := range []string{"secrets.toml", "secrets.yaml", "secrets.yml"} {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func (c *Config) normalize() error {
	var err error
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "~/.cache/grabbit"
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.Cache.Dir, "cache.db")
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.LogDir != "" {
		if c.Logging.LogDir, err = expandPath(c.Logging.LogDir); err != nil {
			return fmt.Errorf("logging.log_dir: %w", err)
		}
	}
	if c.Retries.RetryBackoffSeconds <= 0 {
		c.Retries.RetryBackoffSeconds = 0.5
	}
	if c.Retries.MaxBackoffSeconds <= 0 {
		c.Retries.MaxBackoffSeconds = 4.0
	}
	return nil
}

// StepConfig returns the raw configuration for a named step.
func (c *Config) StepConfig(name string) (map[string]any, bool) {
	step, ok := c.Steps[name]
	return step, ok
}

// WorkflowByName looks up a workflow.
func (c *Config) WorkflowByName(name string) (*Workflow, bool) {
	for i := range c.Workflows {
		if c.Workflows[i].Name == name {
			return &c.Workflows[i], true
		}
	}
	return nil, false
}

// WorkflowForMediaType finds the first workflow whose match block accepts
// the media type, falling back to the default workflow.
func (c *Config) WorkflowForMediaType(mediaType string) (*Workflow, bool) {
	for i := range c.Workflows {
		if c.Workflows[i].Match["media_type"] == mediaType && mediaType != "" {
			return &c.Workflows[i], true
		}
	}
	if c.DefaultWorkflow != "" {
		return c.WorkflowByName(c.DefaultWorkflow)
	}
	return nil, false
}
