package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		err  *AppError
		code int
		typ  string
	}{
		{NewNotFound("x"), http.StatusNotFound, "not_found"},
		{NewBadRequest("x"), http.StatusBadRequest, "bad_request"},
		{NewForbidden("x"), http.StatusForbidden, "forbidden"},
		{NewTooManyRequests("x"), http.StatusTooManyRequests, "rate_limited"},
		{NewInternal(errors.New("boom")), http.StatusInternalServerError, "internal_error"},
		{NewMissingContext(), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.typ, tt.err.Type)
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:3306: connection refused")
	err := NewInternal(cause)

	assert.NotContains(t, SafeMessage(err), "10.0.0.1")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSafeHelpers_WrappedAndForeign(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewNotFound("ページが見つかりません"))
	assert.Equal(t, "ページが見つかりません", SafeMessage(wrapped))
	assert.Equal(t, http.StatusNotFound, SafeCode(wrapped))

	foreign := errors.New("select * from users")
	assert.Equal(t, http.StatusInternalServerError, SafeCode(foreign))
	assert.NotContains(t, SafeMessage(foreign), "users")
}
