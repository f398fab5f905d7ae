package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	State     StateConfig     `yaml:"state"`
	Database  DatabaseConfig  `yaml:"database"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	WebDir string `yaml:"web_dir"`
}

// BackendConfig points at the coaching API.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StateConfig holds the directory of the local credential store.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// DatabaseConfig configures the optional navigation audit log. The audit log
// is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Enabled reports whether the audit database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix COACHDESK_ and underscore-separated paths:
//
//	COACHDESK_SERVER_HOST, COACHDESK_SERVER_PORT, COACHDESK_SERVER_WEB_DIR,
//	COACHDESK_BACKEND_BASE_URL, COACHDESK_BACKEND_TIMEOUT,
//	COACHDESK_STATE_DIR,
//	COACHDESK_DB_HOST, COACHDESK_DB_PORT, COACHDESK_DB_NAME,
//	COACHDESK_DB_USER, COACHDESK_DB_PASSWORD, COACHDESK_DB_SSLMODE,
//	COACHDESK_TAILSCALE_ENABLED, COACHDESK_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Backend: BackendConfig{Timeout: 5 * time.Second},
		State:   StateConfig{Dir: "state"},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("COACHDESK_SERVER_HOST", &cfg.Server.Host)
	setInt("COACHDESK_SERVER_PORT", &cfg.Server.Port)
	setString("COACHDESK_SERVER_WEB_DIR", &cfg.Server.WebDir)
	setString("COACHDESK_BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	if v := os.Getenv("COACHDESK_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	setString("COACHDESK_STATE_DIR", &cfg.State.Dir)
	setString("COACHDESK_DB_HOST", &cfg.Database.Host)
	setInt("COACHDESK_DB_PORT", &cfg.Database.Port)
	setString("COACHDESK_DB_NAME", &cfg.Database.Name)
	setString("COACHDESK_DB_USER", &cfg.Database.User)
	setString("COACHDESK_DB_PASSWORD", &cfg.Database.Password)
	setString("COACHDESK_DB_SSLMODE", &cfg.Database.SSLMode)
	if v := os.Getenv("COACHDESK_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString("COACHDESK_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir is required")
	}
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
