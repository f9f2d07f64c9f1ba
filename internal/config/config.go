package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models deskhand.yml.
type Config struct {
	Auth struct {
		APIToken        string `yaml:"api_token"`
		WebPassword     string `yaml:"web_password"`
		SessionSecret   string `yaml:"session_secret"`
		SessionTTLHours int    `yaml:"session_ttl_hours"`
	} `yaml:"auth"`
	Board struct {
		// Users is the closed set of assignable people. assigned_to on
		// tasks and routines must be one of these (or empty).
		Users         []string `yaml:"users"`
		DefaultBoard  string   `yaml:"default_board"`
		DefaultStatus string   `yaml:"default_status"`
	} `yaml:"board"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run dh init to create one", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Auth.SessionTTLHours < 0 {
		return fmt.Errorf("config.auth.session_ttl_hours must not be negative")
	}
	if len(c.Board.Users) == 0 {
		return fmt.Errorf("config.board.users must list at least one user")
	}
	for _, u := range c.Board.Users {
		if u == "" {
			return fmt.Errorf("config.board.users contains an empty name")
		}
	}
	if c.Board.DefaultBoard == "" {
		return fmt.Errorf("config.board.default_board is required")
	}
	if c.Board.DefaultStatus == "" {
		return fmt.Errorf("config.board.default_status is required")
	}
	return nil
}

// SessionTTLHoursOrDefault returns the configured session lifetime, falling
// back to one week.
func (c *Config) SessionTTLHoursOrDefault() int {
	if c.Auth.SessionTTLHours > 0 {
		return c.Auth.SessionTTLHours
	}
	return 24 * 7
}

// IsUser reports whether name is in the configured user catalog.
func (c *Config) IsUser(name string) bool {
	for _, u := range c.Board.Users {
		if u == name {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "deskhand.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `auth:
  # Static bearer token for the JSON API. Empty disables API auth.
  api_token: ""
  # Shared password for the web login. Empty disables web auth.
  web_password: ""
  # Secret used to sign session cookies. Generated per install.
  session_secret: ""
  session_ttl_hours: 168

board:
  users: [sandi, alex]
  default_board: tasks
  default_status: backlog
`
