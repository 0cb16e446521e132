// Package backendtest provides in-memory doubles for the backend contract,
// shared by the plugin tests.
package backendtest

import (
	"context"
	"net/http"
	"sync"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// Jar is an in-memory backend.CookieJar. Written cookies are appended to
// the readable set and recorded in Written.
type Jar struct {
	mu      sync.Mutex
	jar     []*http.Cookie
	Written []*http.Cookie
}

// NewJar returns a jar pre-loaded with the given request cookies.
func NewJar(cookies ...*http.Cookie) *Jar {
	return &Jar{jar: append([]*http.Cookie(nil), cookies...)}
}

// Cookies implements backend.CookieJar.
func (j *Jar) Cookies() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*http.Cookie(nil), j.jar...)
}

// SetCookies implements backend.CookieJar.
func (j *Jar) SetCookies(cookies ...*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = append(j.jar, cookies...)
	j.Written = append(j.Written, cookies...)
}

// Value returns the current value of the named cookie, or "".
func (j *Jar) Value(name string) string {
	value := ""
	for _, c := range j.Cookies() {
		if c.Name == name {
			value = c.Value
		}
	}
	return value
}

// Client is a backend.Client whose behaviour is set per test through the
// function fields. Unset functions succeed with zero values. Calls counts
// every invocation by method name.
type Client struct {
	GetUserFn                func(ctx context.Context) (*backend.User, error)
	SignUpFn                 func(ctx context.Context, email, password, redirectTo string) error
	SignInWithPasswordFn     func(ctx context.Context, email, password string) error
	SignOutFn                func(ctx context.Context) error
	ResetPasswordForEmailFn  func(ctx context.Context, email, redirectTo string) error
	UpdatePasswordFn         func(ctx context.Context, password string) error
	ExchangeCodeForSessionFn func(ctx context.Context, code string) error
	SetSessionFn             func(ctx context.Context, accessToken, refreshToken string) error
	GetProfileFn             func(ctx context.Context, userID string) (*backend.Profile, error)
	UpdateProfileFn          func(ctx context.Context, userID string, update backend.ProfileUpdate) error

	mu    sync.Mutex
	Calls map[string]int
}

func (c *Client) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Calls == nil {
		c.Calls = make(map[string]int)
	}
	c.Calls[name]++
}

// TotalCalls returns the number of calls made to any method.
func (c *Client) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.Calls {
		n += v
	}
	return n
}

// Count returns the number of calls made to the named method.
func (c *Client) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[name]
}

func (c *Client) GetUser(ctx context.Context) (*backend.User, error) {
	c.record("GetUser")
	if c.GetUserFn != nil {
		return c.GetUserFn(ctx)
	}
	return nil, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) error {
	c.record("SignUp")
	if c.SignUpFn != nil {
		return c.SignUpFn(ctx, email, password, redirectTo)
	}
	return nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	c.record("SignInWithPassword")
	if c.SignInWithPasswordFn != nil {
		return c.SignInWithPasswordFn(ctx, email, password)
	}
	return nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.record("SignOut")
	if c.SignOutFn != nil {
		return c.SignOutFn(ctx)
	}
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	c.record("ResetPasswordForEmail")
	if c.ResetPasswordForEmailFn != nil {
		return c.ResetPasswordForEmailFn(ctx, email, redirectTo)
	}
	return nil
}

func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	c.record("UpdatePassword")
	if c.UpdatePasswordFn != nil {
		return c.UpdatePasswordFn(ctx, password)
	}
	return nil
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) error {
	c.record("ExchangeCodeForSession")
	if c.ExchangeCodeForSessionFn != nil {
		return c.ExchangeCodeForSessionFn(ctx, code)
	}
	return nil
}

func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	c.record("SetSession")
	if c.SetSessionFn != nil {
		return c.SetSessionFn(ctx, accessToken, refreshToken)
	}
	return nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*backend.Profile, error) {
	c.record("GetProfile")
	if c.GetProfileFn != nil {
		return c.GetProfileFn(ctx, userID)
	}
	return nil, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, update backend.ProfileUpdate) error {
	c.record("UpdateProfile")
	if c.UpdateProfileFn != nil {
		return c.UpdateProfileFn(ctx, userID, update)
	}
	return nil
}

// Factory returns a backend.Factory that always hands out client and counts
// how many clients were built.
func Factory(client backend.Client, built *int) backend.Factory {
	return backend.FactoryFunc(func(jar backend.CookieJar) backend.Client {
		if built != nil {
			*built++
		}
		return client
	})
}
