package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds persistent CLI configuration. Values resolve in order:
// flag, environment, config file, default.
type Config struct {
	// RealtimeURL is the base URL of the shared room backend.
	RealtimeURL string `yaml:"realtime_url"`

	// AuthToken authenticates writes against the backend.
	AuthToken string `yaml:"auth_token"`

	// Database is the local SQLite path.
	Database string `yaml:"database"`

	// PlayerName is the display name shown to opponents.
	PlayerName string `yaml:"player_name"`
}

// LoadConfig reads configuration from the given path, or from
// $XDG_CONFIG_HOME/gridrace/config.yaml when path is empty. A missing
// file is not an error. A .env file in the working directory is loaded
// first so GRIDRACE_* variables can override file values.
func LoadConfig(path string) (*Config, error) {
	// Best effort; absence of a .env file is the common case.
	_ = godotenv.Load()

	cfg := &Config{}

	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env and defaults
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("GRIDRACE_REALTIME_URL"); v != "" {
		cfg.RealtimeURL = v
	}
	if v := os.Getenv("GRIDRACE_AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("GRIDRACE_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("GRIDRACE_PLAYER_NAME"); v != "" {
		cfg.PlayerName = v
	}

	if cfg.Database == "" {
		cfg.Database = defaultDatabasePath()
	}
	return cfg, nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gridrace", "config.yaml")
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gridrace.db"
	}
	return filepath.Join(dir, "gridrace", "gridrace.db")
}
