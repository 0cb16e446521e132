package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/profilehub/internal/action"
	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/backend/backendtest"
	"github.com/keyxmakerx/profilehub/internal/errmsg"
	"github.com/keyxmakerx/profilehub/internal/validation"
)

func validForm() validation.ProfileForm {
	return validation.ProfileForm{Username: "taro_99", DisplayName: "Taro"}
}

func userClient() *backendtest.Client {
	return &backendtest.Client{
		GetUserFn: func(ctx context.Context) (*backend.User, error) {
			return &backend.User{ID: "u1", Email: "taro@example.com"}, nil
		},
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	var gotID string
	var got backend.ProfileUpdate
	client := userClient()
	client.UpdateProfileFn = func(ctx context.Context, userID string, update backend.ProfileUpdate) error {
		gotID, got = userID, update
		return nil
	}

	r := NewProfileService().UpdateProfile(context.Background(), client, validation.ProfileForm{
		Username:    " taro_99 ",
		DisplayName: "  <Taro> ",
		Bio:         "  好きなタグは <b> です\n",
		AvatarURL:   " https://example.com/a.png ",
	})

	assert.Equal(t, action.Redirect(PathMyPage), r)
	assert.Equal(t, "u1", gotID)
	assert.Equal(t, "taro_99", got.Username)
	assert.Equal(t, "<Taro>", got.DisplayName)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "好きなタグは <b> です", *got.Bio)
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, "https://example.com/a.png", *got.AvatarURL)
}

func TestUpdateProfile_ValidationStopsBeforeBackend(t *testing.T) {
	tests := []struct {
		name string
		form validation.ProfileForm
		want string
	}{
		{"short username", validation.ProfileForm{Username: "ab", DisplayName: "Taro"}, "ユーザー名は3文字以上で入力してください"},
		{"upper case username", validation.ProfileForm{Username: "Taro", DisplayName: "Taro"}, "ユーザー名は小文字英数字とアンダースコアのみ使用できます"},
		{"blank display name", validation.ProfileForm{Username: "taro", DisplayName: " \n "}, "表示名を入力してください"},
		{"bad avatar", validation.ProfileForm{Username: "taro", DisplayName: "Taro", AvatarURL: "not a url"}, "有効なURLを入力してください"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := userClient()
			r := NewProfileService().UpdateProfile(context.Background(), client, tt.form)

			assert.Equal(t, action.Fail(tt.want), r)
			assert.Zero(t, client.TotalCalls())
		})
	}
}

func TestUpdateProfile_NoUser(t *testing.T) {
	client := &backendtest.Client{}
	r := NewProfileService().UpdateProfile(context.Background(), client, validForm())

	assert.Equal(t, action.Fail(msgNotAuthenticated), r)
	assert.Zero(t, client.Count("UpdateProfile"))
}

func TestUpdateProfile_BackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"duplicate username", &backend.Error{Status: 409, Code: backend.CodeUniqueViolation, Message: "duplicate key value violates unique constraint"}, errmsg.UsernameTaken},
		{"other backend error", &backend.Error{Status: 401, Code: "bad_jwt"}, "認証トークンが無効です"},
		{"transport", errors.New("connection reset"), msgUpdateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := userClient()
			client.UpdateProfileFn = func(ctx context.Context, userID string, update backend.ProfileUpdate) error {
				return tt.err
			}
			r := NewProfileService().UpdateProfile(context.Background(), client, validForm())
			assert.Equal(t, action.Fail(tt.want), r)
		})
	}
}

func TestLoad_ErrorCountsAsMissing(t *testing.T) {
	client := &backendtest.Client{
		GetProfileFn: func(ctx context.Context, userID string) (*backend.Profile, error) {
			return nil, errors.New("timeout")
		},
	}
	assert.Nil(t, NewProfileService().Load(context.Background(), client, "u1"))
}
