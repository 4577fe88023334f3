package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration
type Config struct {
	Env       string `env:"OPSBOARD_ENV" env-default:"prod"`
	Listen    string `env:"OPSBOARD_LISTEN" env-default:":8080"`
	DBPath    string `env:"OPSBOARD_DB_PATH" env-default:"/data/opsboard.db"`
	PageLimit int    `env:"OPSBOARD_PAGE_LIMIT" env-default:"10"`

	// Authentication settings (all optional)
	HtpasswdFile string `env:"OPSBOARD_HTPASSWD_FILE"` // path to htpasswd file, bcrypt entries only
	AuthUser     string `env:"OPSBOARD_AUTH_USER"`
	AuthPass     string `env:"OPSBOARD_AUTH_PASS"`
}

// Load reads configuration from environment variables and applies defaults
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.PageLimit <= 0 {
		return nil, fmt.Errorf("OPSBOARD_PAGE_LIMIT must be positive, got %d", cfg.PageLimit)
	}

	return &cfg, nil
}
