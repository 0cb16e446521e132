package backend

import (
	"net/http"
	"time"
)

// DefaultCookiePrefix matches the hosted service's own "sb-" cookie naming.
const DefaultCookiePrefix = "sb"

// defaultCookieMaxAge keeps session cookies around for as long as the
// backend is willing to honour the refresh token.
const defaultCookieMaxAge = 400 * 24 * time.Hour

// verifierMaxAge bounds how long a PKCE verifier waits for its email link.
const verifierMaxAge = time.Hour

// SessionCookies names and writes the cookies that carry a session. Both
// backend drivers use it so switching drivers keeps the cookie contract.
type SessionCookies struct {
	// Prefix is prepended to every cookie name (default "sb").
	Prefix string

	// MaxAge is the lifetime of the token cookies (default 400 days).
	MaxAge time.Duration
}

// AccessName returns the name of the access-token cookie.
func (s SessionCookies) AccessName() string { return s.prefix() + "-access-token" }

// RefreshName returns the name of the refresh-token cookie.
func (s SessionCookies) RefreshName() string { return s.prefix() + "-refresh-token" }

// VerifierName returns the name of the PKCE code-verifier cookie.
func (s SessionCookies) VerifierName() string { return s.prefix() + "-code-verifier" }

func (s SessionCookies) prefix() string {
	if s.Prefix == "" {
		return DefaultCookiePrefix
	}
	return s.Prefix
}

func (s SessionCookies) maxAge() time.Duration {
	if s.MaxAge <= 0 {
		return defaultCookieMaxAge
	}
	return s.MaxAge
}

// Tokens reads the access and refresh tokens from the jar. Missing cookies
// yield empty strings.
func (s SessionCookies) Tokens(jar CookieJar) (access, refresh string) {
	return lookup(jar, s.AccessName()), lookup(jar, s.RefreshName())
}

// Store writes a fresh token pair.
func (s SessionCookies) Store(jar CookieJar, access, refresh string) {
	maxAge := int(s.maxAge().Seconds())
	jar.SetCookies(
		sessionCookie(s.AccessName(), access, maxAge),
		sessionCookie(s.RefreshName(), refresh, maxAge),
	)
}

// Clear expires both token cookies.
func (s SessionCookies) Clear(jar CookieJar) {
	jar.SetCookies(
		sessionCookie(s.AccessName(), "", -1),
		sessionCookie(s.RefreshName(), "", -1),
	)
}

// Verifier returns the stored PKCE verifier, or "".
func (s SessionCookies) Verifier(jar CookieJar) string {
	return lookup(jar, s.VerifierName())
}

// StoreVerifier remembers a PKCE verifier until the email link comes back.
func (s SessionCookies) StoreVerifier(jar CookieJar, verifier string) {
	jar.SetCookies(sessionCookie(s.VerifierName(), verifier, int(verifierMaxAge.Seconds())))
}

// ClearVerifier expires the PKCE verifier cookie.
func (s SessionCookies) ClearVerifier(jar CookieJar) {
	jar.SetCookies(sessionCookie(s.VerifierName(), "", -1))
}

// sessionCookie builds an HttpOnly, SameSite=Lax cookie. The jar decides
// whether to mark it Secure since only it knows the request's scheme.
func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// lookup returns the last cookie with the given name. The last one wins so a
// value rotated earlier in the request shadows the one the browser sent.
func lookup(jar CookieJar, name string) string {
	value := ""
	for _, c := range jar.Cookies() {
		if c.Name == name {
			value = c.Value
		}
	}
	return value
}
