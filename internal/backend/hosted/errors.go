package hosted

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// PostgREST reports "no rows" for a single-object request with this code.
const codeNoRows = "PGRST116"

// errorBody covers the error shapes of both services:
//
//	GoTrue (current): {"code": 400, "error_code": "invalid_credentials", "msg": "..."}
//	GoTrue (legacy):  {"error": "invalid_grant", "error_description": "..."}
//	PostgREST:        {"code": "23505", "message": "...", "details": "...", "hint": null}
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// parseError maps a non-2xx response to a *backend.Error.
func parseError(status int, body []byte) *backend.Error {
	be := &backend.Error{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		be.Message = strings.TrimSpace(string(body))
		if be.Message == "" {
			be.Message = http.StatusText(status)
		}
		return be
	}

	// PostgREST sends a string code; GoTrue sends the numeric HTTP status.
	var textCode string
	if len(eb.Code) > 0 && eb.Code[0] == '"' {
		_ = json.Unmarshal(eb.Code, &textCode)
	}

	be.Code = firstNonEmpty(eb.ErrorCode, textCode)
	be.Message = firstNonEmpty(eb.Msg, eb.Message, eb.ErrorDescription, eb.Error)
	if be.Message == "" {
		be.Message = http.StatusText(status)
	}
	return be
}

// isAuthFailure reports whether err says the presented token is no good,
// which is the cue to try the refresh token.
func isAuthFailure(err error) bool {
	be, ok := backend.AsError(err)
	if !ok {
		return false
	}
	return be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
