package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ManagerConfig describes how the plugin manager should behave.
type ManagerConfig struct {
	// ConfigFile optionally names a standalone YAML file merged beneath
	// the inline settings.
	ConfigFile string                  `koanf:"config_file" yaml:"config_file,omitempty"`
	PluginDir  string                  `koanf:"plugin_dir" yaml:"plugin_dir,omitempty"`
	Defaults   IsolationPolicy         `koanf:"defaults" yaml:"defaults"`
	Plugins    map[string]PluginConfig `koanf:"plugins" yaml:"plugins,omitempty"`
}

// PluginConfig is the configuration block for a single plugin instance.
// An enabled entry without a path refers to a built-in plugin.
type PluginConfig struct {
	Enabled bool             `koanf:"enabled" yaml:"enabled"`
	Path    string           `koanf:"path" yaml:"path,omitempty"`
	Config  map[string]any   `koanf:"config" yaml:"config,omitempty"`
	Policy  *IsolationPolicy `koanf:"policy" yaml:"policy,omitempty"`
}

// IsolationPolicy governs the security restrictions enforced for a plugin.
type IsolationPolicy struct {
	AllowedCapabilities []Capability `koanf:"allowed_capabilities" yaml:"allowed_capabilities,omitempty"`
	DeniedCapabilities  []Capability `koanf:"denied_capabilities" yaml:"denied_capabilities,omitempty"`
}

// Merge returns a new policy using values from other when not present.
func (p IsolationPolicy) Merge(other IsolationPolicy) IsolationPolicy {
	if len(p.AllowedCapabilities) == 0 {
		p.AllowedCapabilities = other.AllowedCapabilities
	}
	if len(p.DeniedCapabilities) == 0 {
		p.DeniedCapabilities = other.DeniedCapabilities
	}
	return p
}

func (p IsolationPolicy) validate() error {
	for _, list := range [][]Capability{p.AllowedCapabilities, p.DeniedCapabilities} {
		for _, c := range list {
			if !slices.Contains(KnownCapabilities, c) {
				return fmt.Errorf("unknown capability %q", c)
			}
		}
	}
	return nil
}

// LoadManagerConfig reads a standalone YAML file into a ManagerConfig. A
// relative plugin_dir is resolved against the file's directory.
func LoadManagerConfig(path string) (ManagerConfig, error) {
	var cfg ManagerConfig
	if path == "" {
		return cfg, errors.New("config path cannot be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read plugin config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal plugin config: %w", err)
	}
	if cfg.Plugins == nil {
		cfg.Plugins = map[string]PluginConfig{}
	}
	if cfg.PluginDir != "" && !filepath.IsAbs(cfg.PluginDir) {
		cfg.PluginDir = filepath.Join(filepath.Dir(path), cfg.PluginDir)
	}
	return cfg, nil
}

// Merge fills settings missing from c with those of other. Plugin entries
// present in both keep c's version.
func (c ManagerConfig) Merge(other ManagerConfig) ManagerConfig {
	if c.PluginDir == "" {
		c.PluginDir = other.PluginDir
	}
	c.Defaults = c.Defaults.Merge(other.Defaults)
	plugins := make(map[string]PluginConfig, len(c.Plugins)+len(other.Plugins))
	for id, p := range other.Plugins {
		plugins[id] = p
	}
	for id, p := range c.Plugins {
		plugins[id] = p
	}
	c.Plugins = plugins
	return c
}

// Validate ensures the manager configuration is internally consistent.
func (c ManagerConfig) Validate() error {
	if err := c.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for id, plugin := range c.Plugins {
		if id == "" {
			return errors.New("plugin id cannot be empty")
		}
		if plugin.Policy != nil {
			if err := plugin.Policy.validate(); err != nil {
				return fmt.Errorf("plugin %s: %w", id, err)
			}
		}
	}
	return nil
}
