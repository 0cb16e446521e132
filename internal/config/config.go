// Package config loads application configuration from environment
// variables (optionally seeded from a .env file). No other package reads
// env vars directly. Development gets working defaults; production and the
// hosted backend refuse to start without the values they depend on.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Backend driver names accepted by BACKEND_DRIVER.
const (
	DriverHosted = "hosted"
	DriverLocal  = "local"
)

// devSecretKey keeps local development working without a .env file.
const devSecretKey = "dev-secret-key-do-not-use-in-production!!"

// Config holds all application configuration.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// SiteURL is the public base URL used to build the links sent by email
	// (sign-up confirmation, password reset). Actions refuse to send mail
	// when it is empty.
	SiteURL string `env:"SITE_URL"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Backend  BackendConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	SMTP     SMTPConfig `envPrefix:"SMTP_"`
}

// BackendConfig selects and configures the identity/data backend.
type BackendConfig struct {
	// Driver is "hosted" (a GoTrue/PostgREST compatible service) or "local"
	// (the embedded MariaDB + Redis backend).
	Driver string `env:"BACKEND_DRIVER" envDefault:"hosted"`

	// URL and PublishableKey address the hosted service.
	URL            string `env:"BACKEND_URL"`
	PublishableKey string `env:"BACKEND_PUBLISHABLE_KEY"`

	// Timeout bounds each call to the hosted service.
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// CookiePrefix names the session cookies (<prefix>-access-token, ...).
	CookiePrefix string `env:"SESSION_COOKIE_PREFIX" envDefault:"sb"`
}

// DatabaseConfig holds MariaDB connection parameters for the local backend.
// Individual fields are read from separate env vars so orchestrators can
// manage each independently; DATABASE_URL, when set, wins.
type DatabaseConfig struct {
	// Host is the address in host:port form. A missing port becomes 3306.
	Host     string `env:"DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"DB_USER" envDefault:"profilehub"`
	Password string `env:"DB_PASSWORD" envDefault:"profilehub"`
	Name     string `env:"DB_NAME" envDefault:"profilehub"`

	// URL is a complete go-sql-driver/mysql DSN.
	URL string `env:"DATABASE_URL"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the go-sql-driver/mysql connection string. It is built with
// the driver's Config so special characters in passwords survive.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// ensurePort appends the default port if host does not include one.
func ensurePort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
}

// AuthConfig holds the token settings of the local backend.
type AuthConfig struct {
	// SecretKey signs access tokens (HS256). 32+ characters in production.
	SecretKey string `env:"AUTH_SECRET_KEY"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// OneTimeCodeTTL bounds how long an emailed confirmation or recovery
	// link stays valid.
	OneTimeCodeTTL time.Duration `env:"ONE_TIME_CODE_TTL" envDefault:"1h"`
}

// SMTPConfig holds outbound mail settings. An empty Host means mail is
// written to the log instead of sent.
type SMTPConfig struct {
	Host        string `env:"HOST"`
	Port        int    `env:"PORT" envDefault:"587"`
	Username    string `env:"USERNAME"`
	Password    string `env:"PASSWORD"`
	FromAddress string `env:"FROM_ADDRESS" envDefault:"no-reply@localhost"`
	FromName    string `env:"FROM_NAME" envDefault:"profilehub"`

	// Encryption is "starttls", "ssl" or "none".
	Encryption string `env:"ENCRYPTION" envDefault:"starttls"`
}

// Load reads an optional .env file, parses the environment and validates
// the result.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the chosen backend depends on and fills in
// the development secret.
func (c *Config) Validate() error {
	c.Backend.Driver = strings.ToLower(strings.TrimSpace(c.Backend.Driver))
	c.SiteURL = strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")

	switch c.Backend.Driver {
	case DriverHosted:
		if strings.TrimSpace(c.Backend.URL) == "" || strings.TrimSpace(c.Backend.PublishableKey) == "" {
			return errors.New("BACKEND_URL and BACKEND_PUBLISHABLE_KEY are required for the hosted backend")
		}
	case DriverLocal:
		if c.IsProduction() {
			if c.Auth.SecretKey == "" {
				return errors.New("AUTH_SECRET_KEY is required in production")
			}
			if len(c.Auth.SecretKey) < 32 {
				return errors.New("AUTH_SECRET_KEY must be at least 32 characters in production")
			}
		}
		if c.Auth.SecretKey == "" {
			c.Auth.SecretKey = devSecretKey
		}
	default:
		return fmt.Errorf("BACKEND_DRIVER must be %q or %q, got %q", DriverHosted, DriverLocal, c.Backend.Driver)
	}

	switch c.SMTP.Encryption {
	case "starttls", "ssl", "none":
	default:
		return fmt.Errorf("SMTP_ENCRYPTION must be starttls, ssl or none, got %q", c.SMTP.Encryption)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" and its common variants.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}
