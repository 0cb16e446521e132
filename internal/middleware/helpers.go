package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout data (signed-in user, CSRF token) from the
// echo context into the Go context read by page components. It is set once
// in app/routes.go so this package does not import any plugin.
var LayoutInjector func(echo.Context, context.Context) context.Context

// Render writes a component with the given status, running LayoutInjector
// first when one is registered.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

// IsSecure reports whether the request reached us over TLS, directly or
// through a proxy that set X-Forwarded-Proto.
func IsSecure(c echo.Context) bool {
	req := c.Request()
	return req.TLS != nil || req.Header.Get(echo.HeaderXForwardedProto) == "https"
}
