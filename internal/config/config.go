package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"edupulse/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PipelineConfig contains the data-processing settings. The column rename
// mapping and the excluded-component list are deliberately configuration,
// not code: they vary per course export.
type PipelineConfig struct {
	ExcludedComponents []string          `yaml:"excluded_components" envconfig:"EXCLUDED_COMPONENTS"`
	ColumnRenames      map[string]string `yaml:"column_renames"`
	BucketGranularity  string            `yaml:"bucket_granularity" envconfig:"BUCKET_GRANULARITY" default:"month"`
}

// Granularity returns the configured bucket granularity as a domain value.
func (p PipelineConfig) Granularity() domain.BucketGranularity {
	return domain.BucketGranularity(p.BucketGranularity)
}

// ExcludedSet returns the excluded-component list as a lookup set.
func (p PipelineConfig) ExcludedSet() map[string]bool {
	set := make(map[string]bool, len(p.ExcludedComponents))
	for _, name := range p.ExcludedComponents {
		set[name] = true
	}
	return set
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	StateFile  string `yaml:"state_file" envconfig:"STATE_FILE" default:"data/edupulse.db"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := Default()

	// Load from config file first so env vars keep precedence
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileConfig
	}

	if err := envconfig.Process("EDUPULSE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyPipelineDefaults(&cfg.Pipeline)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyPipelineDefaults fills pipeline settings the course export almost
// always needs when the operator supplied none.
func applyPipelineDefaults(p *PipelineConfig) {
	if len(p.ExcludedComponents) == 0 {
		p.ExcludedComponents = []string{"System", "Folder"}
	}
	if len(p.ColumnRenames) == 0 {
		p.ColumnRenames = map[string]string{
			"User Full Name *Anonymized": "User_ID",
		}
	}
	if p.BucketGranularity == "" {
		p.BucketGranularity = string(domain.BucketMonthly)
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if !c.Pipeline.Granularity().Valid() {
		return fmt.Errorf("invalid bucket granularity: %q", c.Pipeline.BucketGranularity)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "data/reports",
			StateFile:  "data/edupulse.db",
			LogsDir:    "logs",
		},
	}
	applyPipelineDefaults(&cfg.Pipeline)
	return cfg
}
