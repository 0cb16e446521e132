package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/apperror"
	"github.com/keyxmakerx/profilehub/internal/backend"
)

// Callback handles the link from confirmation and magic-link emails
// (GET /auth/callback). A code is exchanged for a session; failing that, an
// access/refresh token pair in the query is installed. Afterwards the user
// goes to onboarding or /mypage by the same rule the gate applies.
func (h *Handler) Callback(c echo.Context) error {
	client := GetClient(c)
	if client == nil {
		return apperror.NewMissingContext()
	}

	ctx := c.Request().Context()
	code := c.QueryParam("code")
	accessToken := c.QueryParam("access_token")
	refreshToken := c.QueryParam("refresh_token")

	var err error
	switch {
	case code != "":
		err = client.ExchangeCodeForSession(ctx, code)
	case accessToken != "" && refreshToken != "":
		err = client.SetSession(ctx, accessToken, refreshToken)
	default:
		return c.Redirect(http.StatusTemporaryRedirect, PathLogin+"?error="+errMissingCredsCode)
	}
	if err != nil {
		slog.Info("callback exchange rejected", slog.Any("error", err))
		return c.Redirect(http.StatusTemporaryRedirect, PathLogin+"?error="+encodeURIComponent(rawMessage(err)))
	}

	user, err := client.GetUser(ctx)
	if err != nil || user == nil {
		// The gate on /mypage settles where a half-established session goes.
		return c.Redirect(http.StatusTemporaryRedirect, PathMyPage)
	}
	setUser(c, user)

	if backend.OnboardingRequired(ctx, client, user.ID) {
		return c.Redirect(http.StatusTemporaryRedirect, PathOnboarding)
	}
	return c.Redirect(http.StatusTemporaryRedirect, PathMyPage)
}

// rawMessage is the backend's own message for err, untranslated.
func rawMessage(err error) string {
	if be, ok := backend.AsError(err); ok {
		return be.Message
	}
	return err.Error()
}

// encodeURIComponent escapes s for a query value, with spaces as %20.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
