package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/metrics"
	"github.com/keyxmakerx/profilehub/internal/middleware"
	"github.com/keyxmakerx/profilehub/internal/plugins/auth"
	"github.com/keyxmakerx/profilehub/internal/plugins/profiles"
	"github.com/keyxmakerx/profilehub/internal/templates/pages"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. Access control
// is the gate's job, so no route group carries auth middleware.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Public Routes ---

	// Landing page.
	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Landing())
	})

	// --- Plugin Routes ---

	// auth plugin (sign-up, login, logout, password reset, email callback)
	authHandler := auth.NewHandler(auth.NewAuthService(a.Config.SiteURL))
	auth.RegisterRoutes(e, authHandler)

	// profiles plugin (mypage, onboarding)
	profileHandler := profiles.NewHandler(profiles.NewProfileService())
	profiles.RegisterRoutes(e, profileHandler)

	// --- Infrastructure Routes (bypassed by the gate) ---

	metrics.Register(e)

	api := e.Group("/api", middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{a.Config.SiteURL},
	}))
	api.GET("/health", a.health)
}

// health reports whether the backend's connections answer. Used by the
// container health check.
func (a *App) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := a.Backend.Ping(ctx); err != nil {
		slog.Warn("health check failed", slog.Any("error", err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
