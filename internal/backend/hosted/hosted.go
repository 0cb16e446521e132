// Package hosted implements backend.Client against a hosted GoTrue/PostgREST
// compatible service: /auth/v1 for identity and sessions, /rest/v1 for the
// profiles table. The Factory owns one resty client (a connection pool and
// the public API key); every Client it hands out is bound to one request's
// cookies and holds that request's tokens only.
package hosted

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/metrics"
)

// driverName labels this driver in metrics.
const driverName = "hosted"

// ErrMissingConfig is returned when the backend URL or publishable key is
// absent. Running without them is never allowed.
var ErrMissingConfig = errors.New("hosted backend: URL and publishable key are required")

// Config holds the settings of the hosted backend.
type Config struct {
	// URL is the service base URL, e.g. https://xyz.example.co.
	URL string

	// PublishableKey is the public (anon) API key sent as the apikey header.
	PublishableKey string

	// Timeout bounds every HTTP call (default 10s).
	Timeout time.Duration

	// Cookies names the session cookies.
	Cookies backend.SessionCookies
}

// Factory builds request-scoped hosted clients.
type Factory struct {
	http    *resty.Client
	key     string
	cookies backend.SessionCookies
}

// NewFactory validates cfg and prepares the shared HTTP client.
func NewFactory(cfg Config) (*Factory, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.PublishableKey) == "" {
		return nil, ErrMissingConfig
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.PublishableKey).
		SetHeader("Content-Type", "application/json")

	return &Factory{http: cli, key: cfg.PublishableKey, cookies: cfg.Cookies}, nil
}

// New implements backend.Factory.
func (f *Factory) New(jar backend.CookieJar) backend.Client {
	return &client{
		http:    f.http,
		key:     f.key,
		jar:     jar,
		cookies: f.cookies,
	}
}

// client is the request-scoped handle. user/resolved memoise GetUser for the
// remainder of the request; access tracks the newest access token.
type client struct {
	http    *resty.Client
	key     string
	jar     backend.CookieJar
	cookies backend.SessionCookies

	access   string
	resolved bool
	user     *backend.User
}

// request starts a resty request carrying ctx and, when given, a bearer token.
func (c *client) request(ctx context.Context, bearer string) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if bearer != "" {
		req.SetAuthToken(bearer)
	}
	return req
}

// do runs send, records its latency and maps a non-2xx response to a
// *backend.Error.
func (c *client) do(operation string, send func() (*resty.Response, error)) (*resty.Response, error) {
	start := time.Now()
	resp, err := send()
	metrics.ObserveBackend(driverName, operation, start)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return resp, parseError(resp.StatusCode(), resp.Body())
	}
	return resp, nil
}

// remember memoises the resolved user for this request.
func (c *client) remember(u *backend.User) {
	c.user = u
	c.resolved = true
}

// accessToken returns the newest access token known to this request.
func (c *client) accessToken() string {
	if c.access != "" {
		return c.access
	}
	access, _ := c.cookies.Tokens(c.jar)
	return access
}

// storeSession writes the token pair to the jar and memoises the user that
// came with it.
func (c *client) storeSession(tok *tokenResponse) {
	c.cookies.Store(c.jar, tok.AccessToken, tok.RefreshToken)
	c.access = tok.AccessToken
	if tok.User != nil {
		c.remember(tok.User.toUser())
	} else {
		c.resolved = false
	}
}

// clearSession removes the session cookies and forgets the user.
func (c *client) clearSession() {
	c.cookies.Clear(c.jar)
	c.access = ""
	c.remember(nil)
}
