// Package layouts carries the data the page frame needs (signed-in state,
// CSRF token, current path) from the echo context into the Go context that
// page components render with. Only simple types are stored so the package
// imports no plugin.
//
// Flow: gate/CSRF middleware → echo.Context → LayoutInjector → context.Context → page.
package layouts

import "context"

type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserID          ctxKey = "layout_user_id"
	keyUserEmail       ctxKey = "layout_user_email"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyActivePath      ctxKey = "layout_active_path"
)

// SetIsAuthenticated marks whether the request has a resolved user.
func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

// SetUserID stores the signed-in user's id.
func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyUserID, id)
}

// SetUserEmail stores the signed-in user's email for the header.
func SetUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, keyUserEmail, email)
}

// SetCSRFToken stores the token every form embeds.
func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// SetActivePath stores the request path for navigation highlighting.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsAuthenticated).(bool)
	return v
}

func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(keyUserID).(string)
	return v
}

func GetUserEmail(ctx context.Context) string {
	v, _ := ctx.Value(keyUserEmail).(string)
	return v
}

func GetCSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(keyCSRFToken).(string)
	return v
}

func GetActivePath(ctx context.Context) string {
	v, _ := ctx.Value(keyActivePath).(string)
	return v
}

// Frame is the layout data read back in one value.
type Frame struct {
	IsAuthenticated bool
	UserEmail       string
	CSRFToken       string
	ActivePath      string
}

// FrameFrom collects the layout data stored in ctx.
func FrameFrom(ctx context.Context) Frame {
	return Frame{
		IsAuthenticated: IsAuthenticated(ctx),
		UserEmail:       GetUserEmail(ctx),
		CSRFToken:       GetCSRFToken(ctx),
		ActivePath:      GetActivePath(ctx),
	}
}
