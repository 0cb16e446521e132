// Package errmsg turns backend errors into the fixed Japanese messages shown
// to users. Lookup goes code table first, then known message phrases, then
// the raw message, then a generic fallback.
package errmsg

import (
	"strings"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// User-facing messages that other packages refer to directly.
const (
	InvalidCredentials = "メールアドレスまたはパスワードが正しくありません"
	EmailExists        = "このメールアドレスは既に登録されています"
	UserNotFound       = "ユーザーが見つかりません"
	WeakPassword       = "パスワードが弱すぎます"
	RateLimited        = "リクエストが多すぎます。しばらく待ってから再試行してください"
	UsernameTaken      = "このユーザー名は既に使用されています"
	Generic            = "エラーが発生しました"
)

var byCode = map[string]string{
	"invalid_credentials":         InvalidCredentials,
	"email_exists":                EmailExists,
	"user_not_found":              UserNotFound,
	"weak_password":               WeakPassword,
	"over_request_rate_limit":     RateLimited,
	"anonymous_provider_disabled": "匿名ログインは無効になっています",
	"bad_code_verifier":           "認証コードの検証に失敗しました",
	"bad_jwt":                     "認証トークンが無効です",
	"signup_disabled":             "新規登録は現在無効になっています",
	backend.CodeUniqueViolation:   UsernameTaken,
}

// phrase rules are checked in order against the lower-cased message.
var phrases = []struct {
	match func(msg string) bool
	text  string
}{
	{containsAny("invalid login credentials", "invalid credentials"), InvalidCredentials},
	{containsAny("email already registered", "user already registered"), EmailExists},
	{containsAny("user not found"), UserNotFound},
	{func(msg string) bool {
		return strings.Contains(msg, "password") && strings.Contains(msg, "weak")
	}, WeakPassword},
	{containsAny("rate limit"), RateLimited},
}

func containsAny(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

// Translate returns the user-facing message for a backend error code and
// message. It has no side effects.
func Translate(code, message string) string {
	if text, ok := byCode[code]; ok {
		return text
	}

	if message != "" {
		lower := strings.ToLower(message)
		for _, p := range phrases {
			if p.match(lower) {
				return p.text
			}
		}
		return message
	}

	return Generic
}

// FromError translates err. A *backend.Error anywhere in the chain supplies
// the code and message; any other error is translated by its text alone.
func FromError(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := backend.AsError(err); ok {
		return Translate(be.Code, be.Message)
	}
	return Translate("", err.Error())
}
