package backend

import (
	"context"
	"log/slog"
)

// NeedsOnboarding reports whether a user must be sent to onboarding: the
// profile row is absent or its display name is empty. The gate, the callback
// handler and the onboarding page all use this one predicate.
func NeedsOnboarding(p *Profile) bool {
	return p == nil || p.DisplayName == ""
}

// OnboardingRequired loads the user's profile and applies NeedsOnboarding.
// A failed lookup counts as an absent profile.
func OnboardingRequired(ctx context.Context, client Client, userID string) bool {
	profile, err := client.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("profile lookup failed, treating profile as incomplete",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return true
	}
	return NeedsOnboarding(profile)
}
