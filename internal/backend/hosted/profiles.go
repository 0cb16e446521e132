package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

const (
	profilesPath     = "/rest/v1/profiles"
	profileColumns   = "id,username,display_name,bio,avatar_url,is_public"
	singleObjectMIME = "application/vnd.pgrst.object+json"
)

// GetProfile implements backend.Client. Row-level security on the service
// side decides what the bearer may read, so the user's access token is sent
// when there is one and the public key otherwise.
func (c *client) GetProfile(ctx context.Context, userID string) (*backend.Profile, error) {
	resp, err := c.do("get_profile", func() (*resty.Response, error) {
		return c.request(ctx, c.bearer()).
			SetHeader("Accept", singleObjectMIME).
			SetQueryParam("select", profileColumns).
			SetQueryParam("id", "eq."+userID).
			Get(profilesPath)
	})
	if err != nil {
		if be, ok := backend.AsError(err); ok && (be.Code == codeNoRows || be.Status == http.StatusNotAcceptable) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	var p backend.Profile
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile implements backend.Client.
func (c *client) UpdateProfile(ctx context.Context, userID string, update backend.ProfileUpdate) error {
	_, err := c.do("update_profile", func() (*resty.Response, error) {
		return c.request(ctx, c.bearer()).
			SetHeader("Prefer", "return=minimal").
			SetQueryParam("id", "eq."+userID).
			SetBody(update).
			Patch(profilesPath)
	})
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

func (c *client) bearer() string {
	if access := c.accessToken(); access != "" {
		return access
	}
	return c.key
}
