package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_HostedDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://xyz.example.co")
	t.Setenv("BACKEND_PUBLISHABLE_KEY", "pk")
	t.Setenv("SITE_URL", "https://profiles.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverHosted, cfg.Backend.Driver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "sb", cfg.Backend.CookiePrefix)
	assert.Equal(t, "https://profiles.example.com", cfg.SiteURL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_HostedRequiresURLAndKey(t *testing.T) {
	t.Setenv("BACKEND_DRIVER", "hosted")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_PUBLISHABLE_KEY", "pk")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_URL")
}

func TestLoad_LocalDevSecret(t *testing.T) {
	t.Setenv("BACKEND_DRIVER", "local")
	t.Setenv("AUTH_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, devSecretKey, cfg.Auth.SecretKey)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
}

func TestLoad_LocalProductionNeedsStrongSecret(t *testing.T) {
	t.Setenv("BACKEND_DRIVER", "local")
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_SECRET_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")

	t.Setenv("AUTH_SECRET_KEY", strings.Repeat("k", 32))
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{Backend: BackendConfig{Driver: "firebase"}, SMTP: SMTPConfig{Encryption: "none"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_SMTPEncryption(t *testing.T) {
	cfg := &Config{Backend: BackendConfig{Driver: DriverLocal}, SMTP: SMTPConfig{Encryption: "tls13"}}
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "app", Password: "p@ss:w/rd", Name: "profilehub"}
	dsn := d.DSN()
	assert.Contains(t, dsn, "app:p@ss:w/rd@tcp(db:3306)/profilehub")
	assert.Contains(t, dsn, "parseTime=true")

	d.Host = "db:3307"
	assert.Contains(t, d.DSN(), "tcp(db:3307)")

	d.URL = "root@tcp(127.0.0.1:3306)/x"
	assert.Equal(t, "root@tcp(127.0.0.1:3306)/x", d.DSN())
}
