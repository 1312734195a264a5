package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings for the riak-search CLI and the dev node.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	DevNode DevNodeConfig `yaml:"devnode"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// NodeConfig describes the Riak node the client talks to.
type NodeConfig struct {
	URL        string `yaml:"url"`
	Prefix     string `yaml:"prefix"`
	SolrPrefix string `yaml:"solr_prefix"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	ClientID   string `yaml:"client_id"`
}

// Timeout returns the request timeout as a duration.
func (n NodeConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSec) * time.Second
}

// DevNodeConfig holds the in-memory dev node's HTTP server settings.
type DevNodeConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// MetricsConfig controls the prometheus endpoint of the dev node.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// Default returns a validated config with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
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
	if c.Node.URL == "" {
		c.Node.URL = "http://127.0.0.1:8098"
	}
	if c.Node.Prefix == "" {
		c.Node.Prefix = "riak"
	}
	if c.Node.SolrPrefix == "" {
		c.Node.SolrPrefix = "solr"
	}
	if c.Node.TimeoutSec <= 0 {
		c.Node.TimeoutSec = 30
	}
	if c.DevNode.Port == 0 {
		c.DevNode.Port = 8098
	}
	if c.DevNode.ReadTimeoutSec <= 0 {
		c.DevNode.ReadTimeoutSec = 10
	}
	if c.DevNode.WriteTimeoutSec <= 0 {
		c.DevNode.WriteTimeoutSec = 10
	}
	if c.DevNode.ShutdownSec <= 0 {
		c.DevNode.ShutdownSec = 10
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Node.URL)
	if err != nil {
		return fmt.Errorf("node.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("node.url must use http or https, got %q", c.Node.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("node.url must include a host, got %q", c.Node.URL)
	}
	if c.DevNode.Port <= 0 || c.DevNode.Port > 65535 {
		return fmt.Errorf("devnode.port must be between 1 and 65535, got %d", c.DevNode.Port)
	}
	if c.DevNode.Password != "" && c.DevNode.Username == "" {
		return fmt.Errorf("devnode.password set without devnode.username")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
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
