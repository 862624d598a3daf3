package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"tradeboard-api/pkg/confkit"
)

const defaultTaskTimeout = 10 * time.Second

// Config describes the exchanges available to the aggregation pipeline.
type Config struct {
	Default        string                     `yaml:"default"`
	TaskTimeoutRaw string                     `yaml:"task_timeout"`
	TaskTimeout    time.Duration              `yaml:"-"`
	Exchanges      map[string]*ExchangeConfig `yaml:"exchanges"`
}

// ExchangeConfig configures a single exchange adapter.
type ExchangeConfig struct {
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`

	// RateLimit is tasks per second (one Acquire per task); zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// AdapterBuilder constructs an Adapter from configuration.
type AdapterBuilder func(name string, cfg *ExchangeConfig) (Adapter, error)

var (
	adapterRegistry   = make(map[string]AdapterBuilder)
	adapterRegistryMu sync.RWMutex
)

// RegisterAdapter registers an adapter constructor under a type name.
func RegisterAdapter(typeName string, builder AdapterBuilder) {
	adapterRegistryMu.Lock()
	defer adapterRegistryMu.Unlock()
	adapterRegistry[normalizeName(typeName)] = builder
}

func lookupAdapterBuilder(typeName string) (AdapterBuilder, bool) {
	adapterRegistryMu.RLock()
	defer adapterRegistryMu.RUnlock()
	builder, ok := adapterRegistry[normalizeName(typeName)]
	return builder, ok
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/market.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.Default = normalizeName(os.ExpandEnv(c.Default))
	c.TaskTimeoutRaw = strings.TrimSpace(os.ExpandEnv(c.TaskTimeoutRaw))
	c.TaskTimeout = defaultTaskTimeout
	if c.TaskTimeoutRaw != "" {
		d, err := parsePositiveDuration("task_timeout", c.TaskTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market config: %w", err)
		}
		c.TaskTimeout = d
	}

	exchanges := make(map[string]*ExchangeConfig, len(c.Exchanges))
	for name, exchange := range c.Exchanges {
		if exchange == nil {
			exchange = &ExchangeConfig{}
		}
		key := normalizeName(name)
		exchange.expandEnv()
		if exchange.Type == "" {
			exchange.Type = key
		}
		if err := exchange.parseDurations(key); err != nil {
			return err
		}
		exchanges[key] = exchange
	}
	c.Exchanges = exchanges
	return nil
}

func (e *ExchangeConfig) expandEnv() {
	e.Type = strings.TrimSpace(os.ExpandEnv(e.Type))
	e.BaseURL = strings.TrimSpace(os.ExpandEnv(e.BaseURL))
	e.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(e.TimeoutRaw))
	e.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(e.HTTPTimeoutRaw))
}

func (e *ExchangeConfig) parseDurations(name string) error {
	if e.TimeoutRaw != "" {
		d, err := parsePositiveDuration("timeout", e.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("market exchange %s: %w", name, err)
		}
		e.Timeout = d
	}
	if e.HTTPTimeoutRaw != "" {
		d, err := parsePositiveDuration("http_timeout", e.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market exchange %s: %w", name, err)
		}
		e.HTTPTimeout = d
	}
	return nil
}

func parsePositiveDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("market config: exchanges cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Exchanges[c.Default]; !ok {
			return fmt.Errorf("market config: default exchange %q not defined", c.Default)
		}
	}
	for name, exchange := range c.Exchanges {
		if name == "" {
			return fmt.Errorf("market config: exchange name cannot be empty")
		}
		if err := exchange.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExchangeConfig) validate(name string) error {
	if _, ok := lookupAdapterBuilder(e.Type); !ok {
		return fmt.Errorf("market config: exchange %s has unsupported type %q", name, e.Type)
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("market config: exchange %s max_retries cannot be negative", name)
	}
	if e.RateLimit < 0 || e.Burst < 0 {
		return fmt.Errorf("market config: exchange %s rate_limit and burst cannot be negative", name)
	}
	return nil
}

// BuildRegistry wires one lazily created adapter per configured exchange.
// Adapters are not constructed until first acquired.
func (c *Config) BuildRegistry() (*Registry, error) {
	registry := NewRegistry()
	for name, exchangeCfg := range c.Exchanges {
		builder, ok := lookupAdapterBuilder(exchangeCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market exchange %s: unsupported type %q", name, exchangeCfg.Type)
		}
		name, exchangeCfg := name, exchangeCfg
		registry.Register(name, func() (Adapter, error) {
			adapter, err := builder(name, exchangeCfg)
			if err != nil {
				return nil, fmt.Errorf("market exchange %s: %w", name, err)
			}
			return adapter, nil
		}, WithRateLimit(exchangeCfg.RateLimit, exchangeCfg.Burst))
	}
	return registry, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
