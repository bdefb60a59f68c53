// internal/config/config.go
//
// Process configuration, read from the environment.
// A .env file in the working directory is loaded first (development);
// variables already set in the environment win over .env values.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"5175"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json | console
	DBPath    string `env:"DB_PATH" envDefault:"./data/worldle.db"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"worldle_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Environment    string `env:"NODE_ENV" envDefault:"development"`

	DailySalt     string        `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	CountriesFile string        `env:"COUNTRIES_FILE"`
	ShapeBaseURL  string        `env:"SHAPE_BASE_URL" envDefault:"/assets"`
	GameTTL       time.Duration `env:"GAME_TTL" envDefault:"24h"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.JWTExpiresDays <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_DAYS must be positive, got %d", cfg.JWTExpiresDays)
	}
	if cfg.GameTTL <= 0 {
		return nil, fmt.Errorf("GAME_TTL must be positive, got %s", cfg.GameTTL)
	}
	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// Production reports whether cookies should be Secure / SameSite=None.
func (c *Config) Production() bool { return c.Environment == "production" }

// TokenTTL is the lifetime of issued auth tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}
