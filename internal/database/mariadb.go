// Package database provides connection setup for MariaDB and Redis, used by
// the local backend. Both connections are created once at startup and
// shared through dependency injection. This package owns the connection
// lifecycle (open, configure pool, ping, close) and the schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver, registered for its side effect.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/profilehub/internal/config"
)

// mariaDBMaxRetries bounds the startup ping loop.
const mariaDBMaxRetries = 10

// NewMariaDB opens a connection pool configured from cfg and pings it until
// the server answers or ctx is done. MariaDB may still be starting when the
// app container launches, so the ping backs off exponentially.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	backoff := time.Second
	var pingErr error

	for attempt := 1; attempt <= mariaDBMaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = db.PingContext(pingCtx)
		cancel()

		if pingErr == nil {
			return db, nil
		}
		if attempt == mariaDBMaxRetries {
			break
		}

		slog.Warn("mariadb not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)

		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("waiting for mariadb: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("pinging mariadb after %d attempts: %w", mariaDBMaxRetries, pingErr)
}
