package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// SaveDefault writes the default configuration to path in the format its
// extension implies. Existing files are left alone unless overwrite is
// set.
func SaveDefault(path string, overwrite bool) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err == nil && !overwrite {
		return expanded, nil
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	raw := DefaultRaw()
	var data []byte
	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".toml":
		data, err = toml.Marshal(raw)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(raw)
	default:
		return "", fmt.Errorf("unsupported config format %q", filepath.Ext(expanded))
	}
	if err != nil {
		return "", fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return "", fmt.Errorf("write default config: %w", err)
	}
	return expanded, nil
}
