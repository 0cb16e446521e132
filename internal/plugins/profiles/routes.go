package profiles

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the profile routes. Access is enforced by the
// global gate.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET(PathMyPage, h.MyPage)
	e.GET(PathOnboarding, h.OnboardingForm)
	e.POST(PathOnboarding, h.UpdateProfile)
}
