package llm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
	defaultLogLevel   = "info"

	envAPIKey     = "LLM_API_KEY"
	envBaseURL    = "LLM_BASE_URL"
	envModel      = "LLM_MODEL"
	envTimeout    = "LLM_TIMEOUT"
	envMaxRetries = "LLM_MAX_RETRIES"

	modelSeparator = "/"
)

// Config holds settings for the chat completion client.
type Config struct {
	BaseURL      string                 `yaml:"base_url"`
	APIKey       string                 `yaml:"api_key"`
	DefaultModel string                 `yaml:"default_model"`
	TimeoutRaw   string                 `yaml:"timeout"`
	Timeout      time.Duration          `yaml:"-"`
	MaxRetries   int                    `yaml:"max_retries"`
	LogLevel     string                 `yaml:"log_level"`
	Models       map[string]ModelConfig `yaml:"models"`
}

// ModelConfig holds per-alias request defaults.
type ModelConfig struct {
	Provider    string   `yaml:"provider"`
	ModelName   string   `yaml:"model_name"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open llm config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader decodes YAML, expands ${ENV} references, applies
// LLM_* overrides and validates the result.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read llm config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal llm config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.parseTimeout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.APIKey) == "":
		return errors.New("llm config: api_key is required")
	case strings.TrimSpace(c.BaseURL) == "":
		return errors.New("llm config: base_url is required")
	case strings.TrimSpace(c.DefaultModel) == "":
		return errors.New("llm config: default_model is required")
	case c.Timeout <= 0:
		return errors.New("llm config: timeout must be positive")
	case c.MaxRetries < 0:
		return errors.New("llm config: max_retries cannot be negative")
	}
	return nil
}

// Model looks up an alias.
func (c *Config) Model(alias string) (ModelConfig, bool) {
	m, ok := c.Models[alias]
	return m, ok
}

// Clone returns a copy that does not share the models map.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Models != nil {
		cp.Models = make(map[string]ModelConfig, len(c.Models))
		for k, v := range c.Models {
			cp.Models[k] = v
		}
	}
	return &cp
}

// ResolveModel returns the upstream model id and defaults for alias. Ids that
// already contain a provider prefix are returned as given.
func (c *Config) ResolveModel(alias string) (string, ModelConfig) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		alias = c.DefaultModel
	}
	m, ok := c.Model(alias)
	if !ok || strings.Contains(alias, modelSeparator) {
		return alias, m
	}
	name := strings.TrimSpace(m.ModelName)
	if name == "" {
		name = alias
	}
	if m.Provider == "" || strings.Contains(name, modelSeparator) {
		return name, m
	}
	return m.Provider + modelSeparator + name, m
}

func (c *Config) applyEnv() {
	c.BaseURL = envOr(envBaseURL, os.ExpandEnv(c.BaseURL))
	c.APIKey = envOr(envAPIKey, os.ExpandEnv(c.APIKey))
	c.DefaultModel = envOr(envModel, os.ExpandEnv(c.DefaultModel))
	c.TimeoutRaw = envOr(envTimeout, os.ExpandEnv(c.TimeoutRaw))
	if raw := os.Getenv(envMaxRetries); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			c.MaxRetries = v
		}
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) parseTimeout() error {
	raw := strings.TrimSpace(c.TimeoutRaw)
	if raw == "" {
		c.Timeout = defaultTimeout
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("llm config: invalid timeout %q: %w", raw, err)
	}
	c.Timeout = d
	return nil
}

func envOr(key, current string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return strings.TrimSpace(current)
}
