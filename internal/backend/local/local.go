// Package local implements backend.Client on infrastructure the operator
// runs: users and profiles in MariaDB, refresh tokens and emailed one-time
// codes in Redis, HS256 access tokens, argon2id password hashes. It is for
// self-hosting and development without a hosted identity service, and it
// reports errors with the hosted service's codes.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/mail"
	"github.com/keyxmakerx/profilehub/internal/metrics"
)

const driverName = "local"

// Config holds the settings of the local backend.
type Config struct {
	// SecretKey signs access tokens.
	SecretKey string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// CodeTTL bounds the validity of emailed confirmation/recovery codes.
	CodeTTL time.Duration

	Cookies backend.SessionCookies
}

// Factory builds request-scoped local clients over shared pools.
type Factory struct {
	store   *store
	tokens  *tokens
	codes   *codes
	mailer  mail.Sender
	cookies backend.SessionCookies
	now     func() time.Time
}

// NewFactory validates its inputs and returns a factory.
func NewFactory(cfg Config, db *sql.DB, rdb redis.Cmdable, mailer mail.Sender) (*Factory, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("local backend: secret key is required")
	}
	if db == nil || rdb == nil || mailer == nil {
		return nil, errors.New("local backend: database, redis and mailer are required")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = time.Hour
	}

	now := func() time.Time { return time.Now().UTC() }
	return &Factory{
		store: &store{db: db},
		tokens: &tokens{
			secret:     []byte(cfg.SecretKey),
			accessTTL:  cfg.AccessTokenTTL,
			refreshTTL: cfg.RefreshTokenTTL,
			rdb:        rdb,
			now:        now,
		},
		codes:   &codes{ttl: cfg.CodeTTL, rdb: rdb},
		mailer:  mailer,
		cookies: cfg.Cookies,
		now:     now,
	}, nil
}

// New implements backend.Factory.
func (f *Factory) New(jar backend.CookieJar) backend.Client {
	return &client{Factory: f, jar: jar}
}

// client is bound to one request's cookies and memoises the resolved user.
type client struct {
	*Factory
	jar backend.CookieJar

	resolved bool
	user     *backend.User
}

func observe(operation string, start time.Time) {
	metrics.ObserveBackend(driverName, operation, start)
}

func (c *client) remember(u *backend.User) {
	c.user = u
	c.resolved = true
}

// startSession issues a token pair for u and writes it to the jar.
func (c *client) startSession(ctx context.Context, u *userRow) error {
	access, refresh, err := c.tokens.issue(ctx, u.ID, u.Email)
	if err != nil {
		return err
	}
	c.cookies.Store(c.jar, access, refresh)
	c.remember(u.toUser())
	return nil
}

func (c *client) endSession() {
	c.cookies.Clear(c.jar)
	c.remember(nil)
}

// withCode appends ?code=<code> to the redirect target of an email link.
func withCode(redirectTo, code string) string {
	u, err := url.Parse(redirectTo)
	if err != nil {
		return redirectTo + "?code=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// wrapStore passes backend errors through and wraps everything else.
func wrapStore(op string, err error) error {
	if _, ok := backend.AsError(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
