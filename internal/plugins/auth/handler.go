package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/action"
	"github.com/keyxmakerx/profilehub/internal/apperror"
	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/errmsg"
	"github.com/keyxmakerx/profilehub/internal/middleware"
	"github.com/keyxmakerx/profilehub/internal/templates/pages"
	"github.com/keyxmakerx/profilehub/internal/validation"
)

// Handler serves the account pages. Handlers are thin: they bind the form,
// hand it to the service with the request's backend client and turn the
// action.Result into a redirect or a re-rendered page.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// client returns the backend client the gate attached to the request.
func client(c echo.Context) (backend.Client, error) {
	cl := GetClient(c)
	if cl == nil {
		return nil, apperror.NewMissingContext()
	}
	return cl, nil
}

// LoginForm renders GET /login. ?message= and ?error= become banners; the
// error is whatever the callback put there, translated when it is a known
// backend message.
func (h *Handler) LoginForm(c echo.Context) error {
	data := pages.LoginData{Message: c.QueryParam("message")}
	if e := c.QueryParam("error"); e != "" {
		data.Error = errmsg.Translate(e, e)
	}
	return middleware.Render(c, http.StatusOK, pages.Login(data))
}

// Login processes POST /login.
func (h *Handler) Login(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}

	var form validation.SignInForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	r := h.service.SignIn(c.Request().Context(), cl, form)
	if r.IsRedirect() {
		return c.Redirect(http.StatusSeeOther, r.Target)
	}
	return middleware.Render(c, http.StatusOK, pages.Login(pages.LoginData{Email: form.Email, Error: r.Message}))
}

// SignUpForm renders GET /signup.
func (h *Handler) SignUpForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.SignUp(pages.SignUpData{}))
}

// SignUp processes POST /signup.
func (h *Handler) SignUp(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}

	var form validation.SignUpForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	r := h.service.SignUp(c.Request().Context(), cl, form)
	if r.IsRedirect() {
		return c.Redirect(http.StatusSeeOther, r.Target)
	}
	return middleware.Render(c, http.StatusOK, pages.SignUp(pages.SignUpData{Email: form.Email, Error: r.Message}))
}

// VerifyNotice renders GET /signup/verify.
func (h *Handler) VerifyNotice(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.Verify())
}

// Logout processes POST /logout and sends the browser to the logged-out page.
func (h *Handler) Logout(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}

	r := h.service.SignOut(c.Request().Context(), cl)
	return c.Redirect(http.StatusSeeOther, r.Target)
}

// LogoutPage renders GET /logout, signing out first when a user is still
// present.
func (h *Handler) LogoutPage(c echo.Context) error {
	if GetUser(c) != nil {
		cl, err := client(c)
		if err != nil {
			return err
		}
		h.service.SignOut(c.Request().Context(), cl)
		setUser(c, nil)
	}
	return middleware.Render(c, http.StatusOK, pages.LoggedOut())
}

// ForgotPasswordForm renders GET /forgot-password.
func (h *Handler) ForgotPasswordForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.ForgotPassword(pages.ForgotData{}))
}

// ForgotPassword processes POST /forgot-password.
func (h *Handler) ForgotPassword(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}

	var form validation.PasswordResetRequestForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	r := h.service.RequestPasswordReset(c.Request().Context(), cl, form)
	data := pages.ForgotData{Email: form.Email, Sent: r.Kind == action.KindOK}
	if r.IsError() {
		data.Error = r.Message
	}
	return middleware.Render(c, http.StatusOK, pages.ForgotPassword(data))
}

// ResetPasswordForm renders GET /reset-password. A ?code= from the reset
// email is exchanged for a session first, then the code is dropped from the
// address bar.
func (h *Handler) ResetPasswordForm(c echo.Context) error {
	if code := c.QueryParam("code"); code != "" {
		cl, err := client(c)
		if err != nil {
			return err
		}
		if err := cl.ExchangeCodeForSession(c.Request().Context(), code); err != nil {
			return middleware.Render(c, http.StatusOK, pages.ResetPassword(pages.ResetData{Error: errmsg.FromError(err)}))
		}
		return c.Redirect(http.StatusSeeOther, PathResetPW)
	}
	return middleware.Render(c, http.StatusOK, pages.ResetPassword(pages.ResetData{}))
}

// ResetPassword processes POST /reset-password.
func (h *Handler) ResetPassword(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}

	var form validation.ResetPasswordForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	r := h.service.ResetPassword(c.Request().Context(), cl, form)
	if r.IsRedirect() {
		return c.Redirect(http.StatusSeeOther, r.Target)
	}
	return middleware.Render(c, http.StatusOK, pages.ResetPassword(pages.ResetData{Error: r.Message}))
}
