package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Session  SessionConfig
	Progress ProgressConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Host           string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int    `env:"SERVER_PORT" envDefault:"8080"`
	Secure         bool   `env:"SERVER_SECURE" envDefault:"false"` // HTTPS-only cookies and HSTS
	Environment    string `env:"APP_ENV" envDefault:"development"` // "development", "production", "test"
	Debug          bool   `env:"DEBUG" envDefault:"false"`
	GuideRateLimit int64  `env:"GUIDE_RATE_LIMIT" envDefault:"0"` // submissions per hour; 0 picks a per-environment default
}

// APIConfig points at the plant-guide backend.
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"60s"`
}

type SessionConfig struct {
	TTL    time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	Cookie string        `env:"SESSION_COOKIE" envDefault:"plant_session"`
}

// ProgressConfig drives the cosmetic progress bar shown while a guide is generating.
type ProgressConfig struct {
	Step     int           `env:"PROGRESS_STEP" envDefault:"10"`
	Interval time.Duration `env:"PROGRESS_INTERVAL" envDefault:"300ms"`
	Cap      int           `env:"PROGRESS_CAP" envDefault:"90"`
	Hold     time.Duration `env:"PROGRESS_HOLD" envDefault:"300ms"`
}

type DatabaseConfig struct {
	Enabled  bool   `env:"DB_ENABLED" envDefault:"false"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"plantcare"`
	Password string `env:"DB_PASSWORD" envDefault:"plantcare"`
	DBName   string `env:"DB_NAME" envDefault:"plantcare"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from the given environment map. A nil map
// means the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.Progress.Step <= 0 || c.Progress.Interval <= 0 {
		return errors.New("PROGRESS_STEP and PROGRESS_INTERVAL must be positive")
	}
	if c.Progress.Cap <= 0 || c.Progress.Cap >= 100 {
		return fmt.Errorf("PROGRESS_CAP must be between 1 and 99, got %d", c.Progress.Cap)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}
