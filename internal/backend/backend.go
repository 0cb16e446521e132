// Package backend defines the contract between the web tier and the
// identity-and-data service that owns users, sessions and profiles. The web
// tier never stores credentials itself: it asks a request-scoped Client
// "who is the current user for these cookies" and forwards whatever cookies
// the client rotates onto the response.
//
// Two implementations exist: hosted (a GoTrue/PostgREST compatible HTTP
// service) and local (an embedded MariaDB + Redis backend for self-hosting).
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// CodeUniqueViolation is the error code the backend reports when a write
// violates a uniqueness constraint (e.g. a taken username).
const CodeUniqueViolation = "23505"

// User is the authenticated account as reported by the backend.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the single profile row owned by a user. Empty strings stand
// for NULL columns.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	IsPublic    bool   `json:"is_public"`
}

// ProfileUpdate carries the columns written by the update-profile action.
// A nil Bio or AvatarURL clears the column.
type ProfileUpdate struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}

// CookieJar is the credential source of a request-scoped client. Cookies
// returns what the browser sent (plus anything already rotated during this
// request); SetCookies must make the cookies visible both on the outgoing
// response and to later reads within the same request.
type CookieJar interface {
	Cookies() []*http.Cookie
	SetCookies(cookies ...*http.Cookie)
}

// Client is a handle to the backend bound to one request's cookies. It may
// memoise the resolved user for the lifetime of the request, nothing longer.
type Client interface {
	// GetUser resolves the current user, refreshing the session when the
	// access token has expired. Returns (nil, nil) when nobody is signed in.
	GetUser(ctx context.Context) (*User, error)

	SignUp(ctx context.Context, email, password, redirectTo string) error
	SignInWithPassword(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, password string) error

	// ExchangeCodeForSession trades a single-use code from an email link
	// for a session.
	ExchangeCodeForSession(ctx context.Context, code string) error

	// SetSession installs an access/refresh token pair as the session.
	SetSession(ctx context.Context, accessToken, refreshToken string) error

	// GetProfile returns the user's profile, or (nil, nil) when no row exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) error
}

// Factory builds a Client for a single request. Implementations hold only
// shared, credential-free resources such as connection pools.
type Factory interface {
	New(jar CookieJar) Client
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(jar CookieJar) Client

// New calls f(jar).
func (f FactoryFunc) New(jar CookieJar) Client {
	return f(jar)
}

// Error is an error reported by the backend. Code is the backend's machine
// readable code (e.g. "invalid_credentials", "23505"); Message is its raw
// human readable text.
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// AsError unwraps err into a *Error if it is (or wraps) one.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// ErrSessionMissing is returned by operations that need a signed-in user
// when the request carries no usable session.
var ErrSessionMissing = &Error{
	Status:  http.StatusBadRequest,
	Message: "Auth session missing!",
}
