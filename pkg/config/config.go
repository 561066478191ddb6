// Package config loads the companion's YAML configuration and the API
// credential it names.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Default] and [Load] for fields left empty.
const (
	DefaultModel     = "gemini-1.5-flash-latest"
	DefaultBaseURL   = "https://generativelanguage.googleapis.com"
	DefaultAPIKeyEnv = "GEMINI_API_KEY"
	DefaultFile      = "companion.yaml"
)

// Transports accepted in [Config.Transport].
const (
	TransportREST = "rest"
	TransportLive = "live"
)

// Config is the companion configuration.
type Config struct {
	Model           string   `yaml:"model"`
	BaseURL         string   `yaml:"base_url"`
	APIKeyEnv       string   `yaml:"api_key_env"` // Environment variable holding the credential.
	Transport       string   `yaml:"transport"`
	Temperature     *float64 `yaml:"temperature"`       // nil leaves the server default.
	MaxOutputTokens int      `yaml:"max_output_tokens"` // 0 leaves the server default.
	RequestTimeout  string   `yaml:"request_timeout"`   // Duration string; empty means no per-turn deadline.
	Language        string   `yaml:"language"`          // Reply language; empty leaves the prompt unchanged.
	Markdown        bool     `yaml:"markdown"`
}

// MissingCredentialError is returned by [Config.Credential] when the
// credential variable is unset or empty.
type MissingCredentialError struct {
	Var string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s environment variable not set. Please set it and try again.", e.Var)
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Load reads a YAML file and returns a Config with defaults applied.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// Resolve picks the configuration source: an explicit path must exist, the
// default file is used when present, otherwise defaults are returned.
func Resolve(explicit string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}

	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: stat %s: %w", DefaultFile, err)
	}

	return Default(), nil
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Transport == "" {
		c.Transport = TransportREST
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportREST, TransportLive:
	default:
		return fmt.Errorf("config: unknown transport %q (want %q or %q)", c.Transport, TransportREST, TransportLive)
	}

	if t := c.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("config: temperature %v out of range [0, 2]", *t)
	}

	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("config: max_output_tokens must not be negative")
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}

	return nil
}

// Timeout parses RequestTimeout. An empty value yields zero.
func (c Config) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: request_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: request_timeout must not be negative")
	}

	return d, nil
}

// Credential reads the API key from the configured environment variable
// using getenv (usually os.Getenv).
func (c Config) Credential(getenv func(string) string) (string, error) {
	key := getenv(c.APIKeyEnv)
	if key == "" {
		return "", &MissingCredentialError{Var: c.APIKeyEnv}
	}

	return key, nil
}
