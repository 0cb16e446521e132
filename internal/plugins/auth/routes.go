package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/middleware"
)

// RegisterRoutes sets up the account routes. The gate runs globally, so
// nothing here checks the session itself.
//
// Credential endpoints are rate-limited per IP: 10 sign-in attempts a
// minute, 5 sign-ups and 5 reset requests.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET(PathLogin, h.LoginForm)
	e.POST(PathLogin, h.Login, middleware.RateLimit(10, time.Minute))

	e.GET("/signup", h.SignUpForm)
	e.POST("/signup", h.SignUp, middleware.RateLimit(5, time.Minute))
	e.GET(PathVerify, h.VerifyNotice)

	e.GET(PathLogout, h.LogoutPage)
	e.POST(PathLogout, h.Logout)

	e.GET("/forgot-password", h.ForgotPasswordForm)
	e.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	e.GET(PathResetPW, h.ResetPasswordForm)
	e.POST(PathResetPW, h.ResetPassword)

	e.GET(PathCallback, h.Callback)
}
