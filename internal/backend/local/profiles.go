package local

import (
	"context"
	"errors"
	"time"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// GetProfile implements backend.Client.
func (c *client) GetProfile(ctx context.Context, userID string) (*backend.Profile, error) {
	defer observe("get_profile", time.Now())

	p, err := c.store.profileByID(ctx, userID)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile implements backend.Client. Only the signed-in owner may
// write a profile row.
func (c *client) UpdateProfile(ctx context.Context, userID string, update backend.ProfileUpdate) error {
	user, err := c.GetUser(ctx)
	if err != nil {
		return err
	}
	defer observe("update_profile", time.Now())

	if user == nil || user.ID != userID {
		return errProfileForbidden
	}
	return c.store.updateProfile(ctx, userID, update)
}
