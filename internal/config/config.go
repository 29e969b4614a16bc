// Package config provides configuration management for the real-name rewrite service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hfi/wiki-realnames/internal/rewriter"
	"github.com/hfi/wiki-realnames/internal/wiki"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RealNames RealNamesConfig `yaml:"realnames"`
	Wiki      wiki.URLBuilder `yaml:"wiki"`
	Storage   StorageConfig   `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains the rewrite API listener settings
type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RealNamesConfig contains the rewrite policy and its message texts
type RealNamesConfig struct {
	rewriter.Policy `yaml:",inline"`

	TalkLinkText       string `yaml:"talk_link_text"`
	UserNotExistMarker string `yaml:"user_not_exist_marker"`
}

// StorageConfig selects the account and page backends
type StorageConfig struct {
	Driver     string      `yaml:"driver"` // "sqlite", "postgres" or "memory"
	DSN        string      `yaml:"dsn"`
	ReplicaDSN string      `yaml:"replica_dsn"`
	Migrate    bool        `yaml:"migrate"`
	Accounts   string      `yaml:"accounts"` // "sql" or "redis"
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SessionConfig describes the session cookie shared with the wiki host
type SessionConfig struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"` //#nosec G117 -- shared cookie signing key
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string      `yaml:"level"`
	Format string      `yaml:"format"` // "json" or "console"
	Audit  AuditConfig `yaml:"audit"`
}

// AuditConfig contains rewrite audit logging settings
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // "minimal", "standard" or "verbose"
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Port     int    `yaml:"port"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		RealNames: RealNamesConfig{
			Policy: rewriter.Policy{
				LinkText:       true,
				LinkRef:        false,
				AppendUsername: true,
			},
			TalkLinkText:       "talk",
			UserNotExistMarker: "userpage-userdoesnotexist",
		},
		Wiki: wiki.DefaultURLBuilder(),
		Storage: StorageConfig{
			Driver:   "sqlite",
			DSN:      "wiki.db",
			Migrate:  true,
			Accounts: "sql",
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
				Prefix:  "wiki:",
			},
		},
		Session: SessionConfig{
			Name: "wiki_session",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Audit: AuditConfig{
				Enabled: true,
				Level:   "standard",
			},
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
			Port:     9090,
		},
	}
}

// Load loads the configuration from file or environment
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	return LoadFile(sanitizeConfigPath(configPath))
}

// LoadFile reads path over the defaults. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //#nosec G304 -- config path is operator supplied
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// No config file, use defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	switch c.Storage.Accounts {
	case "sql", "redis":
	default:
		errs = append(errs, fmt.Errorf("storage.accounts: unknown backend %q", c.Storage.Accounts))
	}
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn: required for SQL drivers"))
	}
	if c.RealNames.UserNotExistMarker == "" {
		errs = append(errs, errors.New("realnames.user_not_exist_marker: must not be empty"))
	}
	if c.Wiki.ArticlePath == "" || c.Wiki.ScriptPath == "" {
		errs = append(errs, errors.New("wiki: article_path and script_path are required"))
	}
	switch c.Logging.Audit.Level {
	case "minimal", "standard", "verbose":
	default:
		errs = append(errs, fmt.Errorf("logging.audit.level: unknown level %q", c.Logging.Audit.Level))
	}

	return errors.Join(errs...)
}

// sanitizeConfigPath cleans and validates a config file path
func sanitizeConfigPath(path string) string {
	cleaned := filepath.Clean(path)

	// Relative paths may not escape the working directory
	if !filepath.IsAbs(cleaned) {
		for len(cleaned) > 2 && cleaned[:3] == "../" {
			cleaned = cleaned[3:]
		}
		if cleaned == ".." {
			cleaned = "config.yaml"
		}
	}

	return cleaned
}
