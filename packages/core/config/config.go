package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/fetcher/packages/auth/oauth2"
)

// Config is a fetcher profile: the defaults the CLI applies to every
// request it builds.
type Config struct {
	RootURL         string            `yaml:"rootUrl,omitempty" json:"rootUrl,omitempty"`
	Resource        string            `yaml:"resource,omitempty" json:"resource,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Query           Query             `yaml:"query,omitempty" json:"query,omitempty"`
	Includes        []string          `yaml:"includes,omitempty" json:"includes,omitempty"`
	Token           string            `yaml:"token,omitempty" json:"token,omitempty"`
	OAuth2          *oauth2.Config    `yaml:"oauth2,omitempty" json:"oauth2,omitempty"`
	Timeout         int               `yaml:"timeout,omitempty" json:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `yaml:"followRedirects,omitempty" json:"followRedirects,omitempty"`
	ValidateSSL     *bool             `yaml:"validateSSL,omitempty" json:"validateSSL,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	EnvFile         string            `yaml:"envFile,omitempty" json:"envFile,omitempty"`
	Variables       map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Extract         *bool             `yaml:"extract,omitempty" json:"extract,omitempty"`
	RequestID       *bool             `yaml:"requestId,omitempty" json:"requestId,omitempty"`
	History         string            `yaml:"history,omitempty" json:"history,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty" json:"noColor,omitempty"`

	// Path is the file the profile was read from, if any.
	Path string `yaml:"-" json:"-"`
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetExtract reports whether responses are unwrapped from a data envelope.
func (c *Config) GetExtract() bool {
	return getBool(c.Extract, false)
}

// GetRequestID reports whether every request carries a fresh X-Request-Id.
func (c *Config) GetRequestID() bool {
	return getBool(c.RequestID, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".fetcher.yaml",
	".fetcher.yml",
	"fetcher.json",
	".fetcher.json",
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		RootURL: "/api",
		Timeout: 30000,
	}
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches dir and its parents for a profile. Defaults are
// returned when none exists.
func FindAndLoadConfig(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		for _, filename := range ConfigFilenames {
			configPath := filepath.Join(abs, filename)
			if _, err := os.Stat(configPath); err == nil {
				return loadConfigFromFile(configPath)
			}
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return DefaultConfig(), nil
		}
		abs = parent
	}
}

// loadConfigFromFile reads YAML or JSON; YAML 1.2 accepts both.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings that can never produce a request.
func (c *Config) Validate() error {
	if c.RootURL == "" {
		return errors.New("rootUrl must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}
	if c.OAuth2 != nil {
		return c.OAuth2.Validate()
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.RootURL != "" {
		result.RootURL = other.RootURL
	}
	if other.Resource != "" {
		result.Resource = other.Resource
	}
	if other.Token != "" {
		result.Token = other.Token
	}
	if other.OAuth2 != nil {
		result.OAuth2 = other.OAuth2
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.History != "" {
		result.History = other.History
	}

	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Extract != nil {
		result.Extract = other.Extract
	}
	if other.RequestID != nil {
		result.RequestID = other.RequestID
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeStrings(c.Headers, other.Headers)
	result.Variables = mergeStrings(c.Variables, other.Variables)

	result.Query = c.Query.merge(other.Query)
	if len(other.Includes) > 0 {
		result.Includes = append([]string(nil), other.Includes...)
	}

	return &result
}

func mergeStrings(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// SaveConfig writes the profile as YAML.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
