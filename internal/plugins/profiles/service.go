// Package profiles serves the signed-in user's account page and the
// onboarding form that fills in their profile. The profile row itself lives
// in the backend; this package sanitizes and validates what the user
// submits and forwards it.
package profiles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/keyxmakerx/profilehub/internal/action"
	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/errmsg"
	"github.com/keyxmakerx/profilehub/internal/metrics"
	"github.com/keyxmakerx/profilehub/internal/sanitize"
	"github.com/keyxmakerx/profilehub/internal/validation"
)

// Paths used by this plugin.
const (
	PathMyPage     = "/mypage"
	PathOnboarding = "/onboarding"
)

const (
	msgNotAuthenticated = "認証されていません"
	msgUpdateFailed     = "プロフィール更新に失敗しました"
)

// ProfileService runs the profile actions against a request-scoped backend
// client.
type ProfileService interface {
	// Load returns the profile of userID, or nil when there is none or it
	// could not be read.
	Load(ctx context.Context, client backend.Client, userID string) *backend.Profile

	// UpdateProfile cleans and validates form and writes it to the signed-in
	// user's profile.
	UpdateProfile(ctx context.Context, client backend.Client, form validation.ProfileForm) action.Result
}

type profileService struct{}

// NewProfileService creates the profile service.
func NewProfileService() ProfileService {
	return &profileService{}
}

// Load implements ProfileService. A failed lookup renders like a missing
// profile; the error is only logged.
func (s *profileService) Load(ctx context.Context, client backend.Client, userID string) *backend.Profile {
	p, err := client.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("loading profile failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return nil
	}
	return p
}

// UpdateProfile implements ProfileService.
func (s *profileService) UpdateProfile(ctx context.Context, client backend.Client, form validation.ProfileForm) action.Result {
	r := s.updateProfile(ctx, client, form)
	metrics.ActionResult("update_profile", r.Kind.String())
	return r
}

func (s *profileService) updateProfile(ctx context.Context, client backend.Client, form validation.ProfileForm) action.Result {
	form = Clean(form)
	if msg := validation.Validate(form); msg != "" {
		return action.Fail(msg)
	}

	user, err := client.GetUser(ctx)
	if err != nil {
		slog.Error("resolving user for profile update failed", slog.Any("error", err))
		return action.Fail(msgUpdateFailed)
	}
	if user == nil {
		return action.Fail(msgNotAuthenticated)
	}

	update := backend.ProfileUpdate{
		Username:    form.Username,
		DisplayName: form.DisplayName,
		Bio:         sanitize.Optional(form.Bio),
		AvatarURL:   sanitize.Optional(form.AvatarURL),
	}
	if err := client.UpdateProfile(ctx, user.ID, update); err != nil {
		if be, ok := backend.AsError(err); ok {
			if be.Code == backend.CodeUniqueViolation {
				return action.Fail(errmsg.UsernameTaken)
			}
			return action.Fail(errmsg.FromError(err))
		}
		slog.Error("profile update failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return action.Fail(msgUpdateFailed)
	}

	slog.Info("profile updated", slog.String("user_id", user.ID))
	return action.Redirect(PathMyPage)
}

// Clean trims every field. Text is kept as typed; templates escape it.
func Clean(form validation.ProfileForm) validation.ProfileForm {
	return validation.ProfileForm{
		Username:    strings.TrimSpace(form.Username),
		DisplayName: sanitize.PlainText(form.DisplayName),
		Bio:         sanitize.PlainText(form.Bio),
		AvatarURL:   sanitize.PlainText(form.AvatarURL),
	}
}
