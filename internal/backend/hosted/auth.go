package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// pkceMethod is the challenge method GoTrue expects (lowercase).
const pkceMethod = "s256"

// userResponse is the user object returned by /auth/v1.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *userResponse) toUser() *backend.User {
	return &backend.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// tokenResponse is the session returned by /auth/v1/token and, when email
// confirmation is off, by /auth/v1/signup.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

type credentials struct {
	Email               string `json:"email"`
	Password            string `json:"password"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

// GetUser implements backend.Client.
func (c *client) GetUser(ctx context.Context) (*backend.User, error) {
	if c.resolved {
		return c.user, nil
	}

	access, refresh := c.cookies.Tokens(c.jar)
	if c.access != "" {
		access = c.access
	}
	if access == "" && refresh == "" {
		c.remember(nil)
		return nil, nil
	}

	if access != "" {
		user, err := c.fetchUser(ctx, access)
		if err == nil {
			c.remember(user)
			return user, nil
		}
		if !isAuthFailure(err) {
			return nil, err
		}
	}

	if refresh == "" {
		c.clearSession()
		return nil, nil
	}

	tok, err := c.refresh(ctx, refresh)
	if err != nil {
		if _, ok := backend.AsError(err); ok {
			// The refresh token was rejected: the session is over.
			slog.Debug("refresh token rejected", slog.Any("error", err))
			c.clearSession()
			return nil, nil
		}
		return nil, err
	}

	c.storeSession(tok)
	if c.resolved {
		return c.user, nil
	}
	user, err := c.fetchUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	c.remember(user)
	return user, nil
}

// SignUp implements backend.Client. A PKCE verifier is kept in a cookie so
// the confirmation link can be exchanged by this browser.
func (c *client) SignUp(ctx context.Context, email, password, redirectTo string) error {
	verifier := oauth2.GenerateVerifier()

	resp, err := c.do("signup", func() (*resty.Response, error) {
		return c.request(ctx, "").
			SetQueryParam("redirect_to", redirectTo).
			SetBody(credentials{
				Email:               email,
				Password:            password,
				CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
				CodeChallengeMethod: pkceMethod,
			}).
			Post("/auth/v1/signup")
	})
	if err != nil {
		return fmt.Errorf("signing up: %w", err)
	}

	c.cookies.StoreVerifier(c.jar, verifier)

	// With email confirmation disabled the service signs the user in directly.
	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err == nil && tok.AccessToken != "" {
		c.storeSession(&tok)
	}
	return nil
}

// SignInWithPassword implements backend.Client.
func (c *client) SignInWithPassword(ctx context.Context, email, password string) error {
	tok, err := c.token(ctx, "password", credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}
	c.storeSession(tok)
	return nil
}

// SignOut implements backend.Client. The cookies are cleared even when the
// service call fails; a token the service no longer knows is not an error.
func (c *client) SignOut(ctx context.Context) error {
	access := c.accessToken()
	defer c.clearSession()

	if access == "" {
		return nil
	}

	_, err := c.do("logout", func() (*resty.Response, error) {
		return c.request(ctx, access).
			SetQueryParam("scope", "global").
			Post("/auth/v1/logout")
	})
	if err != nil {
		if be, ok := backend.AsError(err); ok &&
			(be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden || be.Status == http.StatusNotFound) {
			return nil
		}
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// ResetPasswordForEmail implements backend.Client.
func (c *client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	verifier := oauth2.GenerateVerifier()

	_, err := c.do("recover", func() (*resty.Response, error) {
		return c.request(ctx, "").
			SetQueryParam("redirect_to", redirectTo).
			SetBody(map[string]string{
				"email":                 email,
				"code_challenge":        oauth2.S256ChallengeFromVerifier(verifier),
				"code_challenge_method": pkceMethod,
			}).
			Post("/auth/v1/recover")
	})
	if err != nil {
		return fmt.Errorf("requesting password reset: %w", err)
	}

	c.cookies.StoreVerifier(c.jar, verifier)
	return nil
}

// UpdatePassword implements backend.Client.
func (c *client) UpdatePassword(ctx context.Context, password string) error {
	user, err := c.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}
	if user == nil {
		return backend.ErrSessionMissing
	}

	_, err = c.do("update_user", func() (*resty.Response, error) {
		return c.request(ctx, c.accessToken()).
			SetBody(map[string]string{"password": password}).
			Put("/auth/v1/user")
	})
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// ExchangeCodeForSession implements backend.Client using the verifier stored
// by SignUp or ResetPasswordForEmail.
func (c *client) ExchangeCodeForSession(ctx context.Context, code string) error {
	verifier := c.cookies.Verifier(c.jar)
	defer c.cookies.ClearVerifier(c.jar)

	tok, err := c.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return fmt.Errorf("exchanging code: %w", err)
	}
	c.storeSession(tok)
	return nil
}

// SetSession implements backend.Client. The access token is verified with
// the service; if it has expired the refresh token is used instead.
func (c *client) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	user, err := c.fetchUser(ctx, accessToken)
	if err == nil {
		c.cookies.Store(c.jar, accessToken, refreshToken)
		c.access = accessToken
		c.remember(user)
		return nil
	}
	if !isAuthFailure(err) {
		return fmt.Errorf("verifying session: %w", err)
	}

	tok, err := c.refresh(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	c.storeSession(tok)
	return nil
}

// fetchUser asks the service who owns the access token.
func (c *client) fetchUser(ctx context.Context, access string) (*backend.User, error) {
	resp, err := c.do("get_user", func() (*resty.Response, error) {
		return c.request(ctx, access).Get("/auth/v1/user")
	})
	if err != nil {
		return nil, err
	}

	var u userResponse
	if err := json.Unmarshal(resp.Body(), &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return u.toUser(), nil
}

// refresh rotates the session using a refresh token.
func (c *client) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// token calls /auth/v1/token with the given grant.
func (c *client) token(ctx context.Context, grant string, body any) (*tokenResponse, error) {
	resp, err := c.do("token_"+grant, func() (*resty.Response, error) {
		return c.request(ctx, "").
			SetQueryParam("grant_type", grant).
			SetBody(body).
			Post("/auth/v1/token")
	})
	if err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	return &tok, nil
}
