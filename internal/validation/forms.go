package validation

// The forms below are the single source of the input rules. `validate`
// holds the rules checked on the server, `msg` the message reported for
// each rule, and Attrs renders the same rules as HTML input attributes.
// Fields are checked in declaration order.

// SignUpForm is submitted by POST /signup.
type SignUpForm struct {
	Email    string `form:"email" validate:"email" msg:"email:有効なメールアドレスを入力してください"`
	Password string `form:"password" validate:"min=6" msg:"min:パスワードは6文字以上で入力してください"`
}

// SignInForm is submitted by POST /login. The backend is authoritative for
// password strength, so only presence is checked.
type SignInForm struct {
	Email    string `form:"email" validate:"email" msg:"email:有効なメールアドレスを入力してください"`
	Password string `form:"password" validate:"min=1" msg:"min:パスワードを入力してください"`
}

// PasswordResetRequestForm is submitted by POST /forgot-password.
type PasswordResetRequestForm struct {
	Email string `form:"email" validate:"email" msg:"email:有効なメールアドレスを入力してください"`
}

// ResetPasswordForm is submitted by POST /reset-password.
type ResetPasswordForm struct {
	Password        string `form:"password" validate:"min=6" msg:"min:パスワードは6文字以上で入力してください"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password" msg:"eqfield:パスワードが一致しません"`
}

// ProfileForm is submitted by POST /onboarding.
type ProfileForm struct {
	Username    string `form:"username" validate:"min=3,max=30,username" msg:"min:ユーザー名は3文字以上で入力してください|max:ユーザー名は30文字以下で入力してください|username:ユーザー名は小文字英数字とアンダースコアのみ使用できます"`
	DisplayName string `form:"display_name" validate:"min=1,max=50" msg:"min:表示名を入力してください|max:表示名は50文字以下で入力してください"`
	Bio         string `form:"bio" validate:"max=500" msg:"max:自己紹介は500文字以下で入力してください"`
	AvatarURL   string `form:"avatar_url" validate:"omitempty,url" msg:"url:有効なURLを入力してください"`
}
