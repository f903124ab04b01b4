package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the caseindex service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Postgres PostgresConfig `yaml:"postgres"`
	Indexing IndexingConfig `yaml:"indexing"`
	Query    QueryConfig    `yaml:"query"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds search-engine connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the relational read-side connection settings. An empty
// DSN selects the in-memory store (local runs and tests).
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// IndexingConfig holds the queue and worker-pool settings.
type IndexingConfig struct {
	Stream             string `yaml:"stream"`
	Group              string `yaml:"group"`
	Workers            int    `yaml:"workers"`
	BatchSize          int    `yaml:"batch_size"`
	MaxAttempts        int    `yaml:"max_attempts"`
	BackoffBaseMs      int    `yaml:"backoff_base_ms"`
	BackoffCapSec      int    `yaml:"backoff_cap_sec"`
	BlockSec           int    `yaml:"block_sec"`
	StalenessTargetSec int    `yaml:"staleness_target_sec"`
	QueueTransport     string `yaml:"transport"` // stream, memory (default: stream)
	MemoryQueueDepth   int    `yaml:"memory_queue_depth"`
}

// QueryConfig holds pagination bounds for the pattern query surface.
type QueryConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Indexing.Stream == "" {
		c.Indexing.Stream = "caseidx:jobs"
	}
	if c.Indexing.Group == "" {
		c.Indexing.Group = "indexers"
	}
	if c.Indexing.Workers <= 0 {
		c.Indexing.Workers = 4
	}
	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 10
	}
	if c.Indexing.MaxAttempts <= 0 {
		c.Indexing.MaxAttempts = 5
	}
	if c.Indexing.BackoffBaseMs <= 0 {
		c.Indexing.BackoffBaseMs = 200
	}
	if c.Indexing.BackoffCapSec <= 0 {
		c.Indexing.BackoffCapSec = 30
	}
	if c.Indexing.BlockSec <= 0 {
		c.Indexing.BlockSec = 2
	}
	if c.Indexing.StalenessTargetSec <= 0 {
		c.Indexing.StalenessTargetSec = 5
	}
	if c.Indexing.QueueTransport == "" {
		c.Indexing.QueueTransport = "stream"
	}
	if c.Indexing.MemoryQueueDepth <= 0 {
		c.Indexing.MemoryQueueDepth = 1024
	}
	if c.Query.DefaultPageSize <= 0 {
		c.Query.DefaultPageSize = 50
	}
	if c.Query.MaxPageSize <= 0 {
		c.Query.MaxPageSize = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Indexing.QueueTransport {
	case "stream", "memory":
		// ok
	default:
		return fmt.Errorf("indexing.transport must be \"stream\" or \"memory\", got %q", c.Indexing.QueueTransport)
	}
	if c.Query.DefaultPageSize > c.Query.MaxPageSize {
		return fmt.Errorf("query.default_page_size %d exceeds query.max_page_size %d",
			c.Query.DefaultPageSize, c.Query.MaxPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
