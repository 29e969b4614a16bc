package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeConfigPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "simple filename", path: "config.yaml", want: "config.yaml"},
		{name: "dot prefix", path: "./config.yaml", want: "config.yaml"},
		{name: "leading parent dirs stripped", path: "../../etc/wiki.yaml", want: "etc/wiki.yaml"},
		{name: "bare parent dir", path: "..", want: "config.yaml"},
		{name: "absolute path kept", path: "/etc/realnames/config.yaml", want: "/etc/realnames/config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeConfigPath(tt.path); got != tt.want {
				t.Errorf("sanitizeConfigPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.RealNames.LinkText || cfg.RealNames.LinkRef || !cfg.RealNames.AppendUsername {
		t.Errorf("default policy = %+v", cfg.RealNames.Policy)
	}
	if cfg.RealNames.TalkLinkText != "talk" {
		t.Errorf("TalkLinkText = %q, want 'talk'", cfg.RealNames.TalkLinkText)
	}
	if cfg.Wiki.ArticlePath != "/wiki/$1" {
		t.Errorf("ArticlePath = %q", cfg.Wiki.ArticlePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want defaults", cfg.Storage.Driver)
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
realnames:
  link_text: false
  link_ref: true
  append_username: false
  talk_link_text: "discussion"
wiki:
  article_path: "/w/$1"
  script_path: "/w/index.php"
storage:
  driver: postgres
  dsn: "postgres://wiki@localhost/wiki?sslmode=disable"
  accounts: redis
  redis:
    address: "redis:6379"
    prefix: "mw:"
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if cfg.RealNames.LinkText || !cfg.RealNames.LinkRef || cfg.RealNames.AppendUsername {
		t.Errorf("policy = %+v", cfg.RealNames.Policy)
	}
	if cfg.RealNames.TalkLinkText != "discussion" {
		t.Errorf("TalkLinkText = %q", cfg.RealNames.TalkLinkText)
	}
	if cfg.RealNames.UserNotExistMarker != "userpage-userdoesnotexist" {
		t.Errorf("UserNotExistMarker default lost: %q", cfg.RealNames.UserNotExistMarker)
	}
	if cfg.Wiki.ScriptPath != "/w/index.php" {
		t.Errorf("ScriptPath = %q", cfg.Wiki.ScriptPath)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.Accounts != "redis" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Redis.Address != "redis:6379" || cfg.Storage.Redis.Prefix != "mw:" {
		t.Errorf("redis = %+v", cfg.Storage.Redis)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:        "unknown driver",
			mutate:      func(c *Config) { c.Storage.Driver = "mysql" },
			errContains: "storage.driver",
		},
		{
			name:        "unknown account backend",
			mutate:      func(c *Config) { c.Storage.Accounts = "ldap" },
			errContains: "storage.accounts",
		},
		{
			name:        "missing dsn",
			mutate:      func(c *Config) { c.Storage.DSN = "" },
			errContains: "storage.dsn",
		},
		{
			name:        "empty marker",
			mutate:      func(c *Config) { c.RealNames.UserNotExistMarker = "" },
			errContains: "user_not_exist_marker",
		},
		{
			name:        "bad audit level",
			mutate:      func(c *Config) { c.Logging.Audit.Level = "loud" },
			errContains: "logging.audit.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errContains)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Storage.DSN = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory driver without dsn should validate: %v", err)
	}
}
