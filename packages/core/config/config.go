package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFilenames are the recognized config file names, in lookup order.
var ConfigFilenames = []string{
	".apiflow.yaml",
	"apiflow.yaml",
	"apiflow.yml",
}

// Environment is one named target: the base URL requests resolve against
// plus variables seeded into the store before a run.
type Environment struct {
	BaseURL   string         `yaml:"baseUrl,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty"`
}

// Config is the project configuration.
type Config struct {
	DefaultEnvironment string                 `yaml:"defaultEnvironment,omitempty"`
	Registry           string                 `yaml:"registry,omitempty"`
	Timeout            int                    `yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects    *bool                  `yaml:"followRedirects,omitempty"`
	ValidateSSL        *bool                  `yaml:"validateSSL,omitempty"`
	Proxy              string                 `yaml:"proxy,omitempty"`
	Headers            map[string]string      `yaml:"headers,omitempty"`
	NoColor            *bool                  `yaml:"noColor,omitempty"`
	ValidateParams     *bool                  `yaml:"validateParams,omitempty"`
	VarsFile           string                 `yaml:"varsFile,omitempty"`
	Environments       map[string]Environment `yaml:"environments,omitempty"`
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects defaults to true.
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL defaults to true.
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetNoColor defaults to false.
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetValidateParams defaults to false.
func (c *Config) GetValidateParams() bool {
	return getBool(c.ValidateParams, false)
}

// Env looks up a named environment.
func (c *Config) Env(name string) (Environment, bool) {
	env, ok := c.Environments[name]
	return env, ok
}

// Load reads a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Find walks upward from dir looking for a config file, returning "" when
// none exists.
func Find(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, name := range ConfigFilenames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadOrDefault loads the discovered config, or returns an empty Config
// when the project has none.
func LoadOrDefault(dir string) (*Config, error) {
	path := Find(dir)
	if path == "" {
		return &Config{}, nil
	}
	return Load(path)
}
