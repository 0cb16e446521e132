package profiles

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/apperror"
	"github.com/keyxmakerx/profilehub/internal/middleware"
	"github.com/keyxmakerx/profilehub/internal/plugins/auth"
	"github.com/keyxmakerx/profilehub/internal/templates/pages"
	"github.com/keyxmakerx/profilehub/internal/validation"
)

// Handler serves the profile pages. The gate has already sent signed-out
// visitors to /login and incomplete profiles to onboarding.
type Handler struct {
	service ProfileService
}

// NewHandler creates a new profile handler with the given service.
func NewHandler(service ProfileService) *Handler {
	return &Handler{service: service}
}

// MyPage renders GET /mypage.
func (h *Handler) MyPage(c echo.Context) error {
	user := auth.GetUser(c)
	client := auth.GetClient(c)
	if user == nil || client == nil {
		return apperror.NewMissingContext()
	}

	profile := h.service.Load(c.Request().Context(), client, user.ID)
	return middleware.Render(c, http.StatusOK, pages.MyPage(pages.MyPageData{User: user, Profile: profile}))
}

// OnboardingForm renders GET /onboarding, pre-filled with whatever the
// profile already holds.
func (h *Handler) OnboardingForm(c echo.Context) error {
	user := auth.GetUser(c)
	client := auth.GetClient(c)
	if user == nil || client == nil {
		return apperror.NewMissingContext()
	}

	var data pages.OnboardingData
	if p := h.service.Load(c.Request().Context(), client, user.ID); p != nil {
		data = pages.OnboardingData{
			Username:    p.Username,
			DisplayName: p.DisplayName,
			Bio:         p.Bio,
			AvatarURL:   p.AvatarURL,
		}
	}
	return middleware.Render(c, http.StatusOK, pages.Onboarding(data))
}

// UpdateProfile processes POST /onboarding.
func (h *Handler) UpdateProfile(c echo.Context) error {
	client := auth.GetClient(c)
	if client == nil {
		return apperror.NewMissingContext()
	}

	var form validation.ProfileForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	r := h.service.UpdateProfile(c.Request().Context(), client, form)
	if r.IsRedirect() {
		return c.Redirect(http.StatusSeeOther, r.Target)
	}
	return middleware.Render(c, http.StatusOK, pages.Onboarding(pages.OnboardingData{
		Username:    form.Username,
		DisplayName: form.DisplayName,
		Bio:         form.Bio,
		AvatarURL:   form.AvatarURL,
		Error:       r.Message,
	}))
}
