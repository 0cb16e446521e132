package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/backend/hosted"
	"github.com/keyxmakerx/profilehub/internal/backend/local"
	"github.com/keyxmakerx/profilehub/internal/config"
	"github.com/keyxmakerx/profilehub/internal/database"
	"github.com/keyxmakerx/profilehub/internal/mail"
)

// Backend is the configured backend driver plus the connections the local
// driver owns. DB and Redis are nil for the hosted driver.
type Backend struct {
	Factory backend.Factory
	DB      *sql.DB
	Redis   *redis.Client
}

// Close releases the connections held by the local driver.
func (b *Backend) Close() {
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

// OpenBackend builds the driver selected by BACKEND_DRIVER. The local
// driver connects to MariaDB and Redis first and applies pending
// migrations when AUTO_MIGRATE is set.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	cookies := backend.SessionCookies{Prefix: cfg.Backend.CookiePrefix}

	switch cfg.Backend.Driver {
	case config.DriverHosted:
		f, err := hosted.NewFactory(hosted.Config{
			URL:            cfg.Backend.URL,
			PublishableKey: cfg.Backend.PublishableKey,
			Timeout:        cfg.Backend.Timeout,
			Cookies:        cookies,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using hosted backend", slog.String("url", cfg.Backend.URL))
		return &Backend{Factory: f}, nil

	case config.DriverLocal:
		return openLocal(ctx, cfg, cookies)

	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}

func openLocal(ctx context.Context, cfg *config.Config, cookies backend.SessionCookies) (*Backend, error) {
	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to mariadb: %w", err)
	}
	slog.Info("connected to MariaDB")

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.Info("connected to Redis")

	f, err := local.NewFactory(local.Config{
		SecretKey:       cfg.Auth.SecretKey,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		CodeTTL:         cfg.Auth.OneTimeCodeTTL,
		Cookies:         cookies,
	}, db, rdb, mail.New(cfg.SMTP))
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, err
	}

	slog.Info("using local backend")
	return &Backend{Factory: f, DB: db, Redis: rdb}, nil
}

// Ping checks the connections of the local driver. The hosted driver has
// nothing to check without a user's token.
func (b *Backend) Ping(ctx context.Context) error {
	if b.DB != nil {
		if err := b.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("mariadb: %w", err)
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
