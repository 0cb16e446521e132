package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/backend/backendtest"
)

var sessionCookies = backend.SessionCookies{}

// gateServer wires the gate in front of a catch-all handler that records
// whether it ran.
type gateServer struct {
	echo   *echo.Echo
	passed int
	seen   func(c echo.Context)
}

func newGateServer(t *testing.T, factory backend.Factory) *gateServer {
	t.Helper()
	gs := &gateServer{echo: echo.New()}
	gate, err := NewGate(factory, GateOptions{})
	require.NoError(t, err)
	gs.echo.Use(gate)
	gs.echo.Any("/*", func(c echo.Context) error {
		gs.passed++
		if gs.seen != nil {
			gs.seen(c)
		}
		return c.String(http.StatusOK, "ok")
	})
	return gs
}

func (gs *gateServer) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	gs.echo.ServeHTTP(rec, req)
	return rec
}

func signedIn(displayName string, hasProfile bool) *backendtest.Client {
	return &backendtest.Client{
		GetUserFn: func(ctx context.Context) (*backend.User, error) {
			return &backend.User{ID: "u1", Email: "taro@example.com"}, nil
		},
		GetProfileFn: func(ctx context.Context, userID string) (*backend.Profile, error) {
			if !hasProfile {
				return nil, nil
			}
			return &backend.Profile{ID: userID, DisplayName: displayName}, nil
		},
	}
}

func TestNewGate_RequiresFactory(t *testing.T) {
	_, err := NewGate(nil, GateOptions{})
	assert.Error(t, err)
}

func TestGate_Decisions(t *testing.T) {
	tests := []struct {
		name     string
		client   *backendtest.Client
		target   string
		wantCode int
		wantLoc  string
	}{
		{"signed out mypage", &backendtest.Client{}, "/mypage", http.StatusTemporaryRedirect, "/login"},
		{"signed out mypage keeps query", &backendtest.Client{}, "/mypage?tab=1", http.StatusTemporaryRedirect, "/login?tab=1"},
		{"signed out nested mypage", &backendtest.Client{}, "/mypage/settings", http.StatusTemporaryRedirect, "/login"},
		{"signed out onboarding", &backendtest.Client{}, "/onboarding", http.StatusTemporaryRedirect, "/login"},
		{"signed out logout", &backendtest.Client{}, "/logout", http.StatusTemporaryRedirect, "/login"},
		{"signed out landing", &backendtest.Client{}, "/", http.StatusOK, ""},
		{"signed out login", &backendtest.Client{}, "/login", http.StatusOK, ""},
		{"empty display name", signedIn("", true), "/mypage", http.StatusTemporaryRedirect, "/onboarding"},
		{"no profile row", signedIn("", false), "/mypage", http.StatusTemporaryRedirect, "/onboarding"},
		{"complete profile", signedIn("Taro", true), "/mypage", http.StatusOK, ""},
		{"incomplete on onboarding", signedIn("", true), "/onboarding", http.StatusOK, ""},
		{"incomplete elsewhere", signedIn("", true), "/", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newGateServer(t, backendtest.Factory(tt.client, nil))
			rec := gs.get(tt.target)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get(echo.HeaderLocation))
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, 1, gs.passed)
			} else {
				assert.Zero(t, gs.passed)
			}
		})
	}
}

func TestGate_ProfileLookupErrorCountsAsIncomplete(t *testing.T) {
	client := signedIn("Taro", true)
	client.GetProfileFn = func(ctx context.Context, userID string) (*backend.Profile, error) {
		return nil, errors.New("timeout")
	}
	gs := newGateServer(t, backendtest.Factory(client, nil))

	rec := gs.get("/mypage")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/onboarding", rec.Header().Get(echo.HeaderLocation))
}

func TestGate_BackendErrorCountsAsSignedOut(t *testing.T) {
	client := &backendtest.Client{
		GetUserFn: func(ctx context.Context) (*backend.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	gs := newGateServer(t, backendtest.Factory(client, nil))

	assert.Equal(t, "/login", gs.get("/mypage").Header().Get(echo.HeaderLocation))
	assert.Equal(t, http.StatusOK, gs.get("/").Code)
}

func TestGate_BypassBuildsNoClient(t *testing.T) {
	client := signedIn("Taro", true)
	built := 0
	gs := newGateServer(t, backendtest.Factory(client, &built))

	for _, target := range []string{"/api/x", "/api/health", "/static/css/app.css", "/metrics", "/favicon.ico"} {
		rec := gs.get(target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
	assert.Zero(t, built)
	assert.Zero(t, client.TotalCalls())
	assert.Equal(t, 5, gs.passed)
}

func TestGate_Idempotent(t *testing.T) {
	gs := newGateServer(t, backendtest.Factory(signedIn("Taro", true), nil))
	cookie := &http.Cookie{Name: sessionCookies.AccessName(), Value: "a1"}

	first := gs.get("/mypage", cookie)
	second := gs.get("/mypage", cookie)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, gs.passed)
}

// rotatingFactory hands out clients whose GetUser rotates the session
// cookies, like a backend refreshing an expired access token.
func rotatingFactory(user *backend.User) backend.Factory {
	return backend.FactoryFunc(func(jar backend.CookieJar) backend.Client {
		return &backendtest.Client{
			GetUserFn: func(ctx context.Context) (*backend.User, error) {
				sessionCookies.Store(jar, "new-access", "new-refresh")
				return user, nil
			},
			GetProfileFn: func(ctx context.Context, userID string) (*backend.Profile, error) {
				return &backend.Profile{DisplayName: ""}, nil
			},
		}
	})
}

func setCookieValues(rec *httptest.ResponseRecorder) map[string]string {
	values := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		values[c.Name] = c.Value
	}
	return values
}

func TestGate_RotatedCookiesOnRedirect(t *testing.T) {
	gs := newGateServer(t, rotatingFactory(&backend.User{ID: "u1"}))

	rec := gs.get("/mypage", &http.Cookie{Name: sessionCookies.RefreshName(), Value: "old-refresh"})

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/onboarding", rec.Header().Get(echo.HeaderLocation))
	values := setCookieValues(rec)
	assert.Equal(t, "new-access", values[sessionCookies.AccessName()])
	assert.Equal(t, "new-refresh", values[sessionCookies.RefreshName()])
}

func TestGate_RotatedCookiesVisibleDownstream(t *testing.T) {
	gs := newGateServer(t, rotatingFactory(&backend.User{ID: "u1"}))
	var downstream string
	gs.seen = func(c echo.Context) {
		if ck, err := c.Cookie(sessionCookies.AccessName()); err == nil {
			downstream = ck.Value
		}
		assert.NotNil(t, GetUser(c))
		assert.NotNil(t, GetClient(c))
	}

	rec := gs.get("/", &http.Cookie{Name: sessionCookies.AccessName(), Value: "old-access"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new-access", downstream)
	assert.Equal(t, "new-access", setCookieValues(rec)[sessionCookies.AccessName()])
}

func TestEchoJar_ClearRemovesFromRequest(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookies.AccessName(), Value: "a"})
	req.AddCookie(&http.Cookie{Name: "other", Value: "keep"})
	req.Header.Set(echo.HeaderXForwardedProto, "https")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	jar := newJar(c)
	sessionCookies.Clear(jar)

	cookies := req.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "other", cookies[0].Name)

	for _, line := range rec.Header().Values("Set-Cookie") {
		assert.True(t, strings.Contains(line, "Secure"), line)
		assert.True(t, strings.Contains(line, "HttpOnly"), line)
	}
}
