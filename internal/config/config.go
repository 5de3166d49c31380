// Package config resolves the service configuration from defaults, an
// optional YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zombar/knowledgeextractor/internal/insight"
)

// DefaultPath is read when CONFIG_PATH is unset
const DefaultPath = "config.yaml"

// Config holds the service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Queue    QueueConfig    `yaml:"queue"`
	Tracing  TracingConfig  `yaml:"tracing"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres | mysql
	DSN    string `yaml:"dsn"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai | ollama
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"`
	APIVersion  string        `yaml:"api_version"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	// RedisAddr enables asynchronous analyses when set
	RedisAddr   string        `yaml:"redis_addr"`
	Concurrency int           `yaml:"concurrency"`
	Retention   time.Duration `yaml:"retention"`
}

type TracingConfig struct {
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
}

// Load resolves the configuration. A missing YAML or .env file is not an
// error. Missing LLM credentials are not checked here.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 90 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "knowledge.db"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = insight.ProviderOpenAI
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.Queue.Retention <= 0 {
		cfg.Queue.Retention = 24 * time.Hour
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "knowledgeextractor"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

type lookupFunc func(key string) (string, bool)

// applyEnv overlays environment variables. Empty variables are ignored.
func (c *Config) applyEnv(lookup lookupFunc) error {
	vars := map[string]*string{
		"OPENAI_API_KEY":              &c.LLM.APIKey,
		"OPENAI_MODEL":                &c.LLM.Model,
		"OPENAI_ENDPOINT":             &c.LLM.Endpoint,
		"AZURE_OPENAI_API_VERSION":    &c.LLM.APIVersion,
		"LLM_PROVIDER":                &c.LLM.Provider,
		"PORT":                        &c.Server.Port,
		"DB_DRIVER":                   &c.Database.Driver,
		"DB_DSN":                      &c.Database.DSN,
		"REDIS_ADDR":                  &c.Queue.RedisAddr,
		"OTEL_EXPORTER_OTLP_ENDPOINT": &c.Tracing.Endpoint,
		"LOG_LEVEL":                   &c.LogLevel,
	}
	for key, dst := range vars {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("OTEL_EXPORTER_OTLP_INSECURE"); ok && v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_EXPORTER_OTLP_INSECURE %q: %w", v, err)
		}
		c.Tracing.Insecure = insecure
	}
	if v, ok := lookup("WORKER_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid WORKER_CONCURRENCY %q", v)
		}
		c.Queue.Concurrency = n
	}
	return nil
}

// InsightSettings returns the settings of the remote insight capability
func (c *Config) InsightSettings() insight.Settings {
	return insight.Settings{
		Provider:    c.LLM.Provider,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Endpoint:    c.LLM.Endpoint,
		APIVersion:  c.LLM.APIVersion,
		Temperature: c.LLM.Temperature,
		Timeout:     c.LLM.Timeout,
	}
}
