package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/metrics"
)

// GateOptions configures the access-control gate. Zero values take the
// defaults below.
type GateOptions struct {
	// BypassPrefixes are served without building a backend client.
	BypassPrefixes []string

	// AuthRequiredPrefixes send signed-out visitors to the login page.
	AuthRequiredPrefixes []string

	// OnboardingPrefixes send signed-in users with an incomplete profile to
	// onboarding.
	OnboardingPrefixes []string
}

// DefaultBypassPrefixes are the infrastructure and API paths the gate
// never looks at.
var DefaultBypassPrefixes = []string{"/static", metrics.Path, "/favicon.ico", "/api"}

func (o GateOptions) withDefaults() GateOptions {
	if o.BypassPrefixes == nil {
		o.BypassPrefixes = DefaultBypassPrefixes
	}
	if o.AuthRequiredPrefixes == nil {
		o.AuthRequiredPrefixes = []string{PathMyPage, PathLogout, PathOnboarding}
	}
	if o.OnboardingPrefixes == nil {
		o.OnboardingPrefixes = []string{PathMyPage}
	}
	return o
}

// NewGate returns the global middleware that refreshes the session on
// every request and enforces the redirect rules:
//
//	signed out, path under /mypage, /logout or /onboarding  -> 307 /login
//	signed in, path under /mypage, profile incomplete       -> 307 /onboarding
//
// Redirects keep the original query string. Cookies rotated while resolving
// the user are already on the response, so they travel with redirects too.
func NewGate(factory backend.Factory, opts GateOptions) (echo.MiddlewareFunc, error) {
	if factory == nil {
		return nil, errors.New("auth gate: backend factory is required")
	}
	opts = opts.withDefaults()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if hasAnyPrefix(path, opts.BypassPrefixes) {
				metrics.GateDecision("bypass")
				return next(c)
			}

			ctx := c.Request().Context()
			client := factory.New(newJar(c))
			c.Set(contextKeyClient, client)

			user, err := client.GetUser(ctx)
			if err != nil {
				slog.Warn("resolving user failed, continuing signed out",
					slog.String("path", path),
					slog.Any("error", err),
				)
				user = nil
			}
			setUser(c, user)

			if user == nil && hasAnyPrefix(path, opts.AuthRequiredPrefixes) {
				metrics.GateDecision("login")
				return redirectKeepingQuery(c, PathLogin)
			}

			if user != nil && hasAnyPrefix(path, opts.OnboardingPrefixes) &&
				backend.OnboardingRequired(ctx, client, user.ID) {
				metrics.GateDecision("onboarding")
				return redirectKeepingQuery(c, PathOnboarding)
			}

			metrics.GateDecision("pass")
			return next(c)
		}
	}, nil
}

// redirectKeepingQuery answers 307 to path with the request's query string.
func redirectKeepingQuery(c echo.Context, path string) error {
	target := path
	if q := c.Request().URL.RawQuery; q != "" {
		target += "?" + q
	}
	return c.Redirect(http.StatusTemporaryRedirect, target)
}

// hasAnyPrefix is a plain string-prefix match: "/mypage" also covers
// "/mypage/edit" and "/mypages".
func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func setUser(c echo.Context, user *backend.User) {
	c.Set(contextKeyUser, user)
}

// GetUser returns the user the gate resolved, or nil when signed out.
func GetUser(c echo.Context) *backend.User {
	user, _ := c.Get(contextKeyUser).(*backend.User)
	return user
}

// GetClient returns the request's backend client, or nil on paths the gate
// bypasses.
func GetClient(c echo.Context) backend.Client {
	client, _ := c.Get(contextKeyClient).(backend.Client)
	return client
}
