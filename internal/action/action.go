// Package action defines the result every form action returns. A handler
// inspects the kind and performs the navigation or re-render itself, so
// redirects never travel through the error path.
package action

import "fmt"

// Kind tags a Result.
type Kind int

const (
	// KindOK means the action succeeded and the user stays on the page.
	KindOK Kind = iota
	// KindRedirect means the action succeeded and the user moves to Target.
	KindRedirect
	// KindError means the action failed with a user-facing Message.
	KindError
)

// String returns the metrics label of k.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRedirect:
		return "redirect"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of a form action.
type Result struct {
	Kind    Kind
	Target  string
	Message string
	Data    any
}

// Redirect returns a result that navigates to target.
func Redirect(target string) Result {
	return Result{Kind: KindRedirect, Target: target}
}

// Fail returns a result carrying a user-facing error message.
func Fail(message string) Result {
	return Result{Kind: KindError, Message: message}
}

// OK returns a successful result that keeps the user on the page.
func OK(data any) Result {
	return Result{Kind: KindOK, Data: data}
}

// IsRedirect reports whether r navigates away.
func (r Result) IsRedirect() bool { return r.Kind == KindRedirect }

// IsError reports whether r carries an error message.
func (r Result) IsError() bool { return r.Kind == KindError }
