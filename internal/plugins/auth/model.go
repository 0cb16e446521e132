// Package auth handles sign-up, sign-in, sign-out, password reset and the
// email link callback, plus the access-control gate every request passes
// through. Credentials, sessions and tokens live in the backend; this
// package only forwards forms to a request-scoped backend.Client and moves
// the cookies it rotates between request and response.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

// Context keys under which the gate stores request state.
const (
	contextKeyUser   = "auth_user"
	contextKeyClient = "auth_client"
)

// Paths the auth plugin redirects between.
const (
	PathLogin      = "/login"
	PathMyPage     = "/mypage"
	PathOnboarding = "/onboarding"
	PathLogout     = "/logout"
	PathVerify     = "/signup/verify"
	PathCallback   = "/auth/callback"
	PathResetPW    = "/reset-password"
)

// Fixed user-facing messages of the auth actions.
const (
	msgSiteURLMissing   = "SITE_URL が設定されていません"
	msgSignUpFailed     = "登録に失敗しました"
	msgSignInFailed     = "ログインに失敗しました"
	msgResetMailFailed  = "リセットメールの送信に失敗しました"
	msgResetFailed      = "パスワードの変更に失敗しました"
	msgPasswordChanged  = "パスワードを変更しました"
	errMissingCredsCode = "missing_credentials"
)
