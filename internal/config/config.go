package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"sales-dashboard/internal/models"
)

const (
	SourceRemote  = "remote"
	SourceOffline = "offline"
)

type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Source    SourceConfig    `envPrefix:"SOURCE_"`
	Logger    LoggerConfig    `envPrefix:"LOG_"`
	Security  SecurityConfig  `envPrefix:"SECURITY_"`
	Dashboard DashboardConfig `envPrefix:"DASHBOARD_"`
}

type ServerConfig struct {
	Host        string        `env:"HOST" envDefault:"localhost"`
	Port        int           `env:"PORT" envDefault:"8084"`
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	// WriteTimeout of zero keeps /sse/stream connections open indefinitely.
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"0s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// SourceConfig selects where the dashboard datasets come from.
type SourceConfig struct {
	Mode    string `env:"MODE" envDefault:"remote"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000/api"`
	// RequestTimeout of zero means no client-side timeout.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"8"`
	SalesCSV       string        `env:"SALES_CSV" envDefault:"data/sales_data.csv"`
	CustomersCSV   string        `env:"CUSTOMERS_CSV" envDefault:"data/customer_data.csv"`
	// CacheDir keeps parsed CSV rows between runs; empty disables it.
	CacheDir string `env:"CACHE_DIR" envDefault:".cache"`
}

type LoggerConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS    int      `env:"RATE_LIMIT_RPS" envDefault:"100"`
	RateLimitBurst  int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:8084" envSeparator:","`
	TrustedProxies  []string `env:"TRUSTED_PROXIES" envDefault:"127.0.0.1" envSeparator:","`
}

type DashboardConfig struct {
	DefaultStart string `env:"DEFAULT_START" envDefault:"2024-01-01"`
	DefaultEnd   string `env:"DEFAULT_END" envDefault:"2024-12-31"`
	PageSize     int    `env:"PAGE_SIZE" envDefault:"100"`
	// RefreshSchedule is a cron spec; empty disables scheduled refreshes.
	RefreshSchedule string        `env:"REFRESH_SCHEDULE"`
	LoadTimeout     time.Duration `env:"LOAD_TIMEOUT" envDefault:"30s"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must not be negative")
	}

	switch c.Source.Mode {
	case SourceRemote:
		if strings.TrimSpace(c.Source.BaseURL) == "" {
			return fmt.Errorf("source base URL cannot be empty in remote mode")
		}
		if c.Source.RateLimitRPS <= 0 || c.Source.RateLimitBurst <= 0 {
			return fmt.Errorf("source rate limit must be positive")
		}
	case SourceOffline:
		if c.Source.SalesCSV == "" || c.Source.CustomersCSV == "" {
			return fmt.Errorf("offline mode needs both SOURCE_SALES_CSV and SOURCE_CUSTOMERS_CSV")
		}
	default:
		return fmt.Errorf("invalid source mode %q, must be one of: %s, %s", c.Source.Mode, SourceRemote, SourceOffline)
	}

	if c.Source.RequestTimeout < 0 {
		return fmt.Errorf("source request timeout must not be negative")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Dashboard.PageSize <= 0 {
		return fmt.Errorf("dashboard page size must be positive")
	}

	if _, err := models.ParseDate(c.Dashboard.DefaultStart); err != nil {
		return fmt.Errorf("dashboard default start: %w", err)
	}

	if _, err := models.ParseDate(c.Dashboard.DefaultEnd); err != nil {
		return fmt.Errorf("dashboard default end: %w", err)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
