package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the model invocation settings.
type Config struct {
	Model        string            `yaml:"model"`
	Temperature  float64           `yaml:"temperature"`
	MaxTokens    *int              `yaml:"max_tokens"`
	APIKeyEnv    string            `yaml:"api_key_env"`
	BaseURL      string            `yaml:"base_url"`
	Timeout      time.Duration     `yaml:"timeout"`
	Source       string            `yaml:"source"`
	MetricPrefix string            `yaml:"metric_prefix"`
	Tags         map[string]string `yaml:"tags"`
	Log          LogConfig         `yaml:"log"`
	Metrics      MetricsConfig     `yaml:"metrics"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig selects where usage records are delivered.
type MetricsConfig struct {
	Log   bool        `yaml:"log"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis usage counter sink settings. The sink is
// disabled when Address is empty.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Model:        "gpt-4o-mini",
		Temperature:  1,
		APIKeyEnv:    "OPENAI_API_KEY",
		Timeout:      60 * time.Second,
		MetricPrefix: "fence",
		Tags:         make(map[string]string),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Log: true,
			Redis: RedisConfig{
				KeyPrefix: "fence:usage",
			},
		},
	}
}

// Load reads and parses a YAML config file at the given path.
// It returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from the given path. If the file does not exist,
// it returns the default configuration. Other errors (e.g. parse failures)
// are still returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// ResolveAPIKey reads the API key from the environment variable named by
// APIKeyEnv.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.APIKeyEnv == "" {
		return "", errors.New("no api_key_env configured")
	}
	key := strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.APIKeyEnv)
	}
	return key, nil
}

// Validate checks the config for required fields and returns a descriptive
// error if any are missing or invalid.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature))
	}
	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be > 0 when set, got %d", *c.MaxTokens))
	}
	if c.APIKeyEnv == "" {
		errs = append(errs, errors.New("api_key_env is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be > 0, got %s", c.Timeout))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if c.Metrics.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("metrics.redis.db must be >= 0, got %d", c.Metrics.Redis.DB))
	}

	return errors.Join(errs...)
}
