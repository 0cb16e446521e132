package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call /api. "*" allows any.
	AllowedOrigins []string

	// AllowCredentials lets browsers send cookies cross-origin. Ignored with "*".
	AllowCredentials bool
}

// CORS answers cross-origin requests to the API group (health checks from
// dashboards on another origin). The HTML pages are same-origin only.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	if allowAll && cfg.AllowCredentials {
		slog.Warn("CORS: wildcard origin with credentials is not allowed, credentials disabled")
		cfg.AllowCredentials = false
	}

	allowMethods := strings.Join([]string{http.MethodGet, http.MethodHead, http.MethodOptions}, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			origin := req.Header.Get(echo.HeaderOrigin)
			if origin == "" || !(allowAll || originSet[origin]) {
				return next(c)
			}

			res.Header().Set(echo.HeaderAccessControlAllowOrigin, origin)
			res.Header().Add(echo.HeaderVary, echo.HeaderOrigin)
			if cfg.AllowCredentials {
				res.Header().Set(echo.HeaderAccessControlAllowCredentials, "true")
			}

			if req.Method == http.MethodOptions {
				res.Header().Set(echo.HeaderAccessControlAllowMethods, allowMethods)
				res.Header().Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
				res.Header().Set(echo.HeaderAccessControlMaxAge, "3600")
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
