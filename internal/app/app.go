// Package app is the application bootstrap and dependency injection root.
// It holds the configured backend and the Echo instance, installs the
// global middleware (including the auth gate) and wires the plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/apperror"
	"github.com/keyxmakerx/profilehub/internal/config"
	"github.com/keyxmakerx/profilehub/internal/middleware"
	"github.com/keyxmakerx/profilehub/internal/plugins/auth"
	"github.com/keyxmakerx/profilehub/internal/templates/layouts"
	"github.com/keyxmakerx/profilehub/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// Backend is the identity/profile backend every request talks to.
	Backend *Backend

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance and configures the Echo server with global
// middleware and error handling. It fails only when the gate cannot be
// built, which means the backend is missing.
func New(cfg *config.Config, b *Backend) (*App, error) {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() feeds the rate limiter, so only trust forwarding headers
	// from private networks.
	middleware.TrustedProxies(e, middleware.DefaultTrustedProxies)

	app := &App{
		Config:  cfg,
		Backend: b,
		Echo:    e,
	}

	if err := app.setupMiddleware(); err != nil {
		return nil, err
	}

	e.HTTPErrorHandler = app.errorHandler
	middleware.LayoutInjector = injectLayout

	// Stylesheet. Bypassed by the gate.
	e.Static("/static", "static")

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, the gate runs last so a
// request with a bad CSRF token never reaches the backend.
func (a *App) setupMiddleware() error {
	if a.Backend == nil || a.Backend.Factory == nil {
		return errors.New("app: backend is required")
	}

	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CSRF -- double-submit cookie on every form POST; /api is exempt.
	a.Echo.Use(middleware.CSRF())

	// Session refresh and redirect rules.
	gate, err := auth.NewGate(a.Backend.Factory, auth.GateOptions{})
	if err != nil {
		return err
	}
	a.Echo.Use(gate)
	return nil
}

// injectLayout copies what the page frame shows from the echo context.
func injectLayout(c echo.Context, ctx context.Context) context.Context {
	if user := auth.GetUser(c); user != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserID(ctx, user.ID)
		ctx = layouts.SetUserEmail(ctx, user.Email)
	}
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	return layouts.SetActivePath(ctx, c.Request().URL.Path)
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to appropriate HTTP responses, and renders error pages for
// browser requests or JSON for API requests.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		// Router 404/405 and CSRF rejections. Echo's own messages are English,
		// so the page shows ours.
		code = echoErr.Code
		message = defaultErrorMessage(code)
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if isAPIRequest(c) {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	if err := middleware.Render(c, code, pages.ErrorPage(code, message)); err != nil {
		slog.Error("rendering error page failed", slog.Any("error", err))
	}
}

// defaultErrorMessage returns the message shown for a status code when the
// error did not carry one of its own.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "リクエストが正しくありません。"
	case http.StatusForbidden:
		return "このページにアクセスする権限がありません。ページを再読み込みしてからお試しください。"
	case http.StatusNotFound:
		return "お探しのページは見つかりませんでした。"
	case http.StatusMethodNotAllowed:
		return "この操作は許可されていません。"
	case http.StatusTooManyRequests:
		return "リクエストが多すぎます。しばらくしてから再度お試しください。"
	case http.StatusServiceUnavailable:
		return "サービスは一時的に利用できません。しばらくしてから再度お試しください。"
	default:
		return "予期しないエラーが発生しました。しばらくしてから再度お試しください。"
	}
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api")
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting profilehub server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("backend", a.Config.Backend.Driver),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}
