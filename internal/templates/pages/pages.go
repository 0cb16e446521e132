// Package pages holds the HTML pages. Each page is an html/template file
// rendered inside layout.html and exposed as a templ.Component so handlers
// render it through middleware.Render like any other component.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/sanitize"
	"github.com/keyxmakerx/profilehub/internal/templates/layouts"
	"github.com/keyxmakerx/profilehub/internal/validation"
)

//go:embed html/*.html
var files embed.FS

// siteName is shown in the header and page titles.
const siteName = "ProfileHub"

// unset stands in for an empty profile column on /mypage.
const unset = "未設定"

// forms maps the names used in templates to the form structs whose rules
// become input attributes.
var forms = map[string]any{
	"signup":     validation.SignUpForm{},
	"login":      validation.SignInForm{},
	"forgot":     validation.PasswordResetRequestForm{},
	"reset":      validation.ResetPasswordForm{},
	"onboarding": validation.ProfileForm{},
}

var funcs = template.FuncMap{
	"attrs": func(form, field string) template.HTMLAttr {
		f, ok := forms[form]
		if !ok {
			return ""
		}
		return validation.Attrs(f, field)
	},
	"orUnset": func(s string) string {
		if s == "" {
			return unset
		}
		return s
	},
	"multiline": sanitize.Multiline,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return unset
		}
		return t.In(jst).Format("2006/1/2")
	},
}

// jst is the zone dates are shown in.
var jst = time.FixedZone("JST", 9*60*60)

var templates = parseAll(
	"landing", "login", "signup", "verify", "forgot", "reset",
	"mypage", "onboarding", "logout", "error",
)

func parseAll(names ...string) map[string]*template.Template {
	set := make(map[string]*template.Template, len(names))
	for _, name := range names {
		set[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(files, "html/layout.html", "html/"+name+".html"))
	}
	return set
}

// view is what every template executes against.
type view struct {
	Title string
	Frame layouts.Frame
	Data  any
}

// page returns a component rendering the named template inside the layout.
func page(name, title string, data any) templ.Component {
	full := siteName
	if title != "" {
		full = title + " - " + siteName
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tmpl, ok := templates[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}
		return tmpl.ExecuteTemplate(w, "layout", view{Title: full, Frame: layouts.FrameFrom(ctx), Data: data})
	})
}

// Landing is the public top page.
func Landing() templ.Component {
	return page("landing", "", nil)
}

// LoginData fills the login form. Message is the success banner passed as
// ?message=, Error the failure banner from ?error= or the last attempt.
type LoginData struct {
	Email   string
	Message string
	Error   string
}

func Login(d LoginData) templ.Component {
	return page("login", "ログイン", d)
}

// SignUpData refills the sign-up form after a failed attempt.
type SignUpData struct {
	Email string
	Error string
}

func SignUp(d SignUpData) templ.Component {
	return page("signup", "新規登録", d)
}

// Verify asks the user to follow the emailed confirmation link.
func Verify() templ.Component {
	return page("verify", "メール確認", nil)
}

// ForgotData drives the reset request page. Sent replaces the form with the
// confirmation banner.
type ForgotData struct {
	Email string
	Error string
	Sent  bool
}

func ForgotPassword(d ForgotData) templ.Component {
	return page("forgot", "パスワードリセット", d)
}

// ResetData drives the new-password page.
type ResetData struct {
	Error string
}

func ResetPassword(d ResetData) templ.Component {
	return page("reset", "新しいパスワード設定", d)
}

// MyPageData is the signed-in user's account view. Profile may be nil.
type MyPageData struct {
	User    *backend.User
	Profile *backend.Profile
}

// Username returns the profile's username or "".
func (d MyPageData) Username() string {
	if d.Profile == nil {
		return ""
	}
	return d.Profile.Username
}

// DisplayName returns the profile's display name or "".
func (d MyPageData) DisplayName() string {
	if d.Profile == nil {
		return ""
	}
	return d.Profile.DisplayName
}

// Bio returns the profile's bio or "".
func (d MyPageData) Bio() string {
	if d.Profile == nil {
		return ""
	}
	return d.Profile.Bio
}

// IsPublic reports the profile's public flag; no profile means private.
func (d MyPageData) IsPublic() bool {
	return d.Profile != nil && d.Profile.IsPublic
}

func MyPage(d MyPageData) templ.Component {
	return page("mypage", "マイページ", d)
}

// OnboardingData pre-fills the profile form.
type OnboardingData struct {
	Username    string
	DisplayName string
	Bio         string
	AvatarURL   string
	Error       string
}

func Onboarding(d OnboardingData) templ.Component {
	return page("onboarding", "プロフィール設定", d)
}

// LoggedOut confirms the sign-out.
func LoggedOut() templ.Component {
	return page("logout", "ログアウト", nil)
}

// ErrorData is shown by the central error handler.
type ErrorData struct {
	Code    int
	Message string
}

// ErrorPage renders an error status with a safe message.
func ErrorPage(code int, message string) templ.Component {
	return page("error", "エラー", ErrorData{Code: code, Message: message})
}
