package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "profilehub_csrf"
	csrfHeaderName  = "X-CSRF-Token"

	// CSRFFormField is the hidden input every form carries.
	CSRFFormField = "csrf_token"

	csrfContextKey = "csrf_token"
)

// CSRF implements the double-submit cookie pattern for every mutating
// request outside /api/. A token cookie is issued on first contact and the
// same value must come back in the form field or the X-CSRF-Token header.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			var cookieToken string
			if cookie, err := req.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
				cookieToken = cookie.Value
			} else {
				token, err := generateCSRFToken()
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}
				c.SetCookie(&http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   IsSecure(c),
					SameSite: http.SameSiteLaxMode,
				})
				cookieToken = token
			}
			c.Set(csrfContextKey, cookieToken)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = req.FormValue(CSRFFormField)
			}

			// Constant-time to avoid leaking the token byte by byte.
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}
			return next(c)
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken returns the request's CSRF token for embedding in forms.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(csrfContextKey).(string); ok {
		return token
	}
	return ""
}
