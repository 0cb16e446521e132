package auth

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/keyxmakerx/profilehub/internal/action"
	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/errmsg"
	"github.com/keyxmakerx/profilehub/internal/metrics"
	"github.com/keyxmakerx/profilehub/internal/validation"
)

// AuthService runs the account form actions against a request-scoped
// backend client. Every method returns an action.Result; none of them
// writes to the response.
type AuthService interface {
	SignUp(ctx context.Context, client backend.Client, form validation.SignUpForm) action.Result
	SignIn(ctx context.Context, client backend.Client, form validation.SignInForm) action.Result
	SignOut(ctx context.Context, client backend.Client) action.Result
	RequestPasswordReset(ctx context.Context, client backend.Client, form validation.PasswordResetRequestForm) action.Result
	ResetPassword(ctx context.Context, client backend.Client, form validation.ResetPasswordForm) action.Result
}

// authService implements AuthService.
type authService struct {
	siteURL string
}

// NewAuthService creates the auth service. siteURL is the public base URL
// email links point back to; an empty value fails the actions that send
// email rather than the whole server.
func NewAuthService(siteURL string) AuthService {
	return &authService{siteURL: strings.TrimRight(strings.TrimSpace(siteURL), "/")}
}

// SignUp registers the account; the backend emails a confirmation link
// that returns to /auth/callback.
func (s *authService) SignUp(ctx context.Context, client backend.Client, form validation.SignUpForm) action.Result {
	return record("signup", func() action.Result {
		if msg := validation.Validate(form); msg != "" {
			return action.Fail(msg)
		}
		if s.siteURL == "" {
			return action.Fail(msgSiteURLMissing)
		}

		if err := client.SignUp(ctx, form.Email, form.Password, s.siteURL+PathCallback); err != nil {
			return failure("signup", err, msgSignUpFailed)
		}

		slog.Info("sign-up submitted")
		return action.Redirect(PathVerify)
	})
}

// SignIn establishes a session from email and password.
func (s *authService) SignIn(ctx context.Context, client backend.Client, form validation.SignInForm) action.Result {
	return record("signin", func() action.Result {
		if msg := validation.Validate(form); msg != "" {
			return action.Fail(msg)
		}

		if err := client.SignInWithPassword(ctx, form.Email, form.Password); err != nil {
			return failure("signin", err, msgSignInFailed)
		}
		return action.Redirect(PathMyPage)
	})
}

// SignOut ends the session. The backend's answer does not change where the
// user goes next.
func (s *authService) SignOut(ctx context.Context, client backend.Client) action.Result {
	return record("signout", func() action.Result {
		if err := client.SignOut(ctx); err != nil {
			slog.Warn("sign-out failed", slog.Any("error", err))
		}
		return action.Redirect(PathLogout)
	})
}

// RequestPasswordReset asks the backend to email a reset link that lands
// on /reset-password.
func (s *authService) RequestPasswordReset(ctx context.Context, client backend.Client, form validation.PasswordResetRequestForm) action.Result {
	return record("request_password_reset", func() action.Result {
		if msg := validation.Validate(form); msg != "" {
			return action.Fail(msg)
		}
		if s.siteURL == "" {
			return action.Fail(msgSiteURLMissing)
		}

		if err := client.ResetPasswordForEmail(ctx, form.Email, s.siteURL+PathResetPW); err != nil {
			return failure("request_password_reset", err, msgResetMailFailed)
		}
		return action.OK(nil)
	})
}

// ResetPassword sets a new password for the session established by the
// reset link.
func (s *authService) ResetPassword(ctx context.Context, client backend.Client, form validation.ResetPasswordForm) action.Result {
	return record("reset_password", func() action.Result {
		if msg := validation.Validate(form); msg != "" {
			return action.Fail(msg)
		}

		if err := client.UpdatePassword(ctx, form.Password); err != nil {
			return failure("reset_password", err, msgResetFailed)
		}
		return action.Redirect(PathLogin + "?message=" + url.QueryEscape(msgPasswordChanged))
	})
}

// record counts the result of an action.
func record(name string, run func() action.Result) action.Result {
	r := run()
	metrics.ActionResult(name, r.Kind.String())
	return r
}

// failure turns a backend error into its translated message. Anything else
// (transport, timeouts, mail delivery) is logged and replaced by fallback.
func failure(name string, err error, fallback string) action.Result {
	if _, ok := backend.AsError(err); ok {
		return action.Fail(errmsg.FromError(err))
	}
	slog.Error("action failed",
		slog.String("action", name),
		slog.Any("error", err),
	)
	return action.Fail(fallback)
}
