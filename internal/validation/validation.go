// Package validation checks submitted forms against the rules declared in
// their struct tags and renders the same rules for the browser.
package validation

import (
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// UsernamePattern is the character class allowed in usernames.
const UsernamePattern = "[a-z0-9_]+"

// fallbackMessage is reported for a rule that has no msg entry.
const fallbackMessage = "入力内容が正しくありません"

var usernameRE = regexp.MustCompile("^" + UsernamePattern + "$")

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

func validate() *validator.Validate {
	engineOnce.Do(func() {
		engine = validator.New(validator.WithRequiredStructEnabled())
		if err := engine.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRE.MatchString(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("registering username validator: %v", err))
		}
	})
	return engine
}

// Validate checks form (a pointer to or value of one of the form structs)
// and returns the message of the first failing field's first failing rule,
// or "" when the form is valid.
func Validate(form any) string {
	err := validate().Struct(form)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		slog.Error("form validation failed to run", slog.Any("error", err))
		return fallbackMessage
	}

	first := verrs[0]
	return messageFor(reflect.TypeOf(form), first.StructField(), first.Tag())
}

// messageFor looks up the msg entry for tag on the named field.
func messageFor(t reflect.Type, field, tag string) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	sf, ok := t.FieldByName(field)
	if !ok {
		return fallbackMessage
	}
	for _, entry := range strings.Split(sf.Tag.Get("msg"), "|") {
		name, text, ok := strings.Cut(entry, ":")
		if ok && name == tag {
			return text
		}
	}
	return fallbackMessage
}

// Attrs renders the rules of the field submitted as name as HTML input
// attributes (required, minlength, maxlength, pattern) so the browser
// checks the same constraints before submitting.
func Attrs(form any, name string) template.HTMLAttr {
	t := reflect.TypeOf(form)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Tag.Get("form") != name {
			continue
		}
		return template.HTMLAttr(strings.Join(attrsFor(sf.Tag.Get("validate")), " "))
	}
	return ""
}

func attrsFor(rules string) []string {
	var (
		optional  bool
		required  bool
		minLength int
		maxLength int
		pattern   string
	)

	for _, rule := range strings.Split(rules, ",") {
		name, param, _ := strings.Cut(rule, "=")
		switch name {
		case "omitempty":
			optional = true
		case "email", "url":
			required = true
		case "min":
			if n, err := strconv.Atoi(param); err == nil && n > 0 {
				required = true
				minLength = n
			}
		case "max":
			if n, err := strconv.Atoi(param); err == nil {
				maxLength = n
			}
		case "username":
			pattern = UsernamePattern
		}
	}

	var attrs []string
	if required && !optional {
		attrs = append(attrs, "required")
	}
	if minLength > 1 {
		attrs = append(attrs, fmt.Sprintf(`minlength="%d"`, minLength))
	}
	if maxLength > 0 {
		attrs = append(attrs, fmt.Sprintf(`maxlength="%d"`, maxLength))
	}
	if pattern != "" {
		attrs = append(attrs, fmt.Sprintf(`pattern="%s"`, html.EscapeString(pattern)))
	}
	return attrs
}
