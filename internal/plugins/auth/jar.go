package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/middleware"
)

// echoJar is the backend.CookieJar of one echo request. Rotated cookies go
// onto the response immediately and are also written back into the
// request's Cookie header, so later reads in the same request (and any
// handler downstream of the gate) see the new session.
type echoJar struct {
	c      echo.Context
	secure bool
}

func newJar(c echo.Context) *echoJar {
	return &echoJar{c: c, secure: middleware.IsSecure(c)}
}

// Cookies implements backend.CookieJar.
func (j *echoJar) Cookies() []*http.Cookie {
	return j.c.Request().Cookies()
}

// SetCookies implements backend.CookieJar.
func (j *echoJar) SetCookies(cookies ...*http.Cookie) {
	req := j.c.Request()

	current := req.Cookies()
	for _, ck := range cookies {
		ck.Secure = j.secure
		j.c.SetCookie(ck)

		kept := current[:0]
		for _, existing := range current {
			if existing.Name != ck.Name {
				kept = append(kept, existing)
			}
		}
		current = kept
		if ck.MaxAge >= 0 && ck.Value != "" {
			current = append(current, &http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}

	pairs := make([]string, 0, len(current))
	for _, ck := range current {
		pairs = append(pairs, ck.String())
	}
	if len(pairs) == 0 {
		req.Header.Del("Cookie")
		return
	}
	req.Header.Set("Cookie", strings.Join(pairs, "; "))
}
