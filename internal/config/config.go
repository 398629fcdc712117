// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the niko CLI.
// It handles loading and parsing the YAML configuration file at
// ~/.niko/config.yaml and provides structured access to provider
// definitions, safety settings, and UI preferences. The configuration is
// loaded once in main and passed by pointer to whatever needs it; there is
// no implicit global state or re-initialization.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nikoshell/niko/internal/util"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// ActiveProvider is the name of the provider used when no override is given.
	ActiveProvider string `yaml:"active-provider"`

	// Providers maps a provider name (e.g. "ollama", "openai", "claude") to
	// its connection settings. The map is fully dynamic; nothing is hardcoded
	// beyond the defaults written on first run.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Safety holds command risk-classification settings.
	Safety SafetyConfig `yaml:"safety"`

	// UI holds terminal output preferences.
	UI UIConfig `yaml:"ui"`

	// LoggingToFile controls whether application logs are written to rotating
	// files under the config directory or to stderr.
	LoggingToFile bool `yaml:"logging-to-file"`
}

// ProviderConfig describes one named backend.
type ProviderConfig struct {
	// Kind selects the adapter implementation: "ollama", "openai_compat" or
	// "anthropic". An unknown or empty kind is a hard configuration error.
	Kind string `yaml:"kind"`

	// APIKey is the credential for remote providers; empty for local ones.
	APIKey string `yaml:"api-key"`

	// BaseURL is the API base address. Empty selects the kind's default.
	BaseURL string `yaml:"base-url"`

	// Model is the currently selected model name.
	Model string `yaml:"model"`

	// Options carries provider-specific extras (temperature overrides etc.).
	Options map[string]string `yaml:"options,omitempty"`
}

// SafetyConfig holds command risk-classification settings.
type SafetyConfig struct {
	// RequireConfirmDangerous keeps the confirmation prompt for commands
	// classified dangerous or critical.
	RequireConfirmDangerous bool `yaml:"require-confirm-dangerous"`

	// BlockedCommands are never suggested regardless of classification.
	BlockedCommands []string `yaml:"blocked-commands"`

	// RulesFile optionally points at a YAML file of user-defined risk rules
	// evaluated by the safety engine.
	RulesFile string `yaml:"rules-file,omitempty"`
}

// UIConfig holds terminal output preferences.
type UIConfig struct {
	Color   bool `yaml:"color"`
	Verbose bool `yaml:"verbose"`
}

// ProviderTemplate describes a well-known provider preset used by the setup
// flow and the env-var overlay.
type ProviderTemplate struct {
	Name    string
	Kind    string
	BaseURL string
	EnvVar  string
}

// KnownProviderTemplates returns the built-in provider presets.
func KnownProviderTemplates() []ProviderTemplate {
	return []ProviderTemplate{
		{Name: "ollama", Kind: "ollama", BaseURL: "http://127.0.0.1:11434", EnvVar: ""},
		{Name: "openai", Kind: "openai_compat", BaseURL: "https://api.openai.com/v1", EnvVar: "OPENAI_API_KEY"},
		{Name: "claude", Kind: "anthropic", BaseURL: "https://api.anthropic.com", EnvVar: "ANTHROPIC_API_KEY"},
		{Name: "deepseek", Kind: "openai_compat", BaseURL: "https://api.deepseek.com/v1", EnvVar: "DEEPSEEK_API_KEY"},
		{Name: "groq", Kind: "openai_compat", BaseURL: "https://api.groq.com/openai/v1", EnvVar: "GROQ_API_KEY"},
		{Name: "together", Kind: "openai_compat", BaseURL: "https://api.together.xyz/v1", EnvVar: "TOGETHER_API_KEY"},
		{Name: "mistral", Kind: "openai_compat", BaseURL: "https://api.mistral.ai/v1", EnvVar: "MISTRAL_API_KEY"},
		{Name: "openrouter", Kind: "openai_compat", BaseURL: "https://openrouter.ai/api/v1", EnvVar: "OPENROUTER_API_KEY"},
	}
}

// TemplateFor returns the preset ProviderConfig for a well-known provider
// name, with the API key left for the env overlay or an explicit set.
func TemplateFor(name string) (ProviderConfig, bool) {
	for _, t := range KnownProviderTemplates() {
		if t.Name == name {
			return ProviderConfig{Kind: t.Kind, BaseURL: t.BaseURL}, true
		}
	}
	return ProviderConfig{}, false
}

// Dir returns the niko configuration directory (~/.niko).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".niko"
	}
	return filepath.Join(home, ".niko")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration written on first run. Only the local
// Ollama provider is preconfigured; remote providers are added explicitly.
func Default() *Config {
	return &Config{
		ActiveProvider: "ollama",
		Providers: map[string]ProviderConfig{
			"ollama": {
				Kind:    "ollama",
				BaseURL: "http://127.0.0.1:11434",
			},
		},
		Safety: SafetyConfig{
			RequireConfirmDangerous: true,
			BlockedCommands: []string{
				"rm -rf /",
				"rm -rf /*",
				":(){ :|:& };:",
				"dd if=/dev/zero of=/dev/sda",
				"mkfs.ext4 /dev/sda",
				"> /dev/sda",
				"chmod -R 777 /",
			},
		},
		UI: UIConfig{Color: true},
	}
}

// Load reads the config file at path, creating it with defaults when absent,
// and overlays API keys from well-known environment variables onto matching
// providers that have no key configured.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("config: failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
		overlayEnv(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	overlayEnv(cfg)
	return cfg, nil
}

// Save writes cfg to path as YAML. The write is atomic so an interrupted
// save never corrupts the existing file.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to serialize: %w", err)
	}
	if err := util.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// overlayEnv fills empty API keys from the well-known environment variables.
func overlayEnv(cfg *Config) {
	for _, tpl := range KnownProviderTemplates() {
		if tpl.EnvVar == "" {
			continue
		}
		key := os.Getenv(tpl.EnvVar)
		if key == "" {
			continue
		}
		if p, ok := cfg.Providers[tpl.Name]; ok && p.APIKey == "" {
			p.APIKey = key
			cfg.Providers[tpl.Name] = p
		}
	}
}

// ActiveProviderConfig resolves the active provider's name and settings.
func (c *Config) ActiveProviderConfig() (string, ProviderConfig, error) {
	name := c.ActiveProvider
	p, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("config: active provider %q not configured; run 'niko set %s kind <kind>' first", name, name)
	}
	return name, p, nil
}

// Provider resolves a named provider, falling back to the active one when
// name is empty.
func (c *Config) Provider(name string) (string, ProviderConfig, error) {
	if name == "" {
		return c.ActiveProviderConfig()
	}
	p, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("config: provider %q not configured", name)
	}
	return name, p, nil
}

// SetProviderField updates one field on a provider, creating the provider
// entry when missing. Unknown field names land in Options.
func (c *Config) SetProviderField(provider, field, value string) {
	p := c.Providers[provider]
	switch field {
	case "api-key", "api_key":
		p.APIKey = value
	case "base-url", "base_url":
		p.BaseURL = value
	case "model":
		p.Model = value
	case "kind":
		p.Kind = value
	default:
		if p.Options == nil {
			p.Options = make(map[string]string)
		}
		p.Options[field] = value
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	c.Providers[provider] = p
}

// SetActiveProvider switches the active provider, requiring it to exist.
func (c *Config) SetActiveProvider(name string) error {
	if _, ok := c.Providers[name]; !ok {
		return fmt.Errorf("config: provider %q not configured", name)
	}
	c.ActiveProvider = name
	return nil
}
