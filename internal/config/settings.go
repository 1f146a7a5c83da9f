package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ToolSettings is the locally persisted tool configuration sent with
// init_agent, mirroring the server-side settings document.
type ToolSettings struct {
	Model    string         `yaml:"model,omitempty"`
	ToolArgs map[string]any `yaml:"tool_args,omitempty"`
}

// DefaultSettingsPath is where tool settings live unless overridden.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "relive-settings.yaml"
	}
	return filepath.Join(home, ".relive", "settings.yaml")
}

// LoadToolSettings reads the settings file. A missing file yields empty
// settings, not an error.
func LoadToolSettings(path string) (ToolSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ToolSettings{}, nil
		}
		return ToolSettings{}, fmt.Errorf("config.LoadToolSettings: %w", err)
	}

	var settings ToolSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return ToolSettings{}, fmt.Errorf("config.LoadToolSettings: parse %s: %w", path, err)
	}
	return settings, nil
}

// SaveToolSettings writes the settings file, creating parent
// directories as needed.
func SaveToolSettings(path string, settings ToolSettings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("config.SaveToolSettings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config.SaveToolSettings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config.SaveToolSettings: %w", err)
	}
	return nil
}
