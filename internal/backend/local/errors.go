package local

import (
	"errors"
	"net/http"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// The local backend speaks the hosted service's error vocabulary so the
// web tier translates both the same way.
var (
	errInvalidCredentials = &backend.Error{
		Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials",
	}
	errEmailExists = &backend.Error{
		Status: http.StatusUnprocessableEntity, Code: "email_exists", Message: "User already registered",
	}
	errEmailNotConfirmed = &backend.Error{
		Status: http.StatusBadRequest, Code: "email_not_confirmed", Message: "Email not confirmed",
	}
	errWeakPassword = &backend.Error{
		Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters.",
	}
	errSamePassword = &backend.Error{
		Status: http.StatusUnprocessableEntity, Code: "same_password", Message: "New password should be different from the old password.",
	}
	errFlowStateNotFound = &backend.Error{
		Status: http.StatusNotFound, Code: "flow_state_not_found", Message: "invalid flow state, no valid flow state found",
	}
	errRefreshTokenNotFound = &backend.Error{
		Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found",
	}
	errBadJWT = &backend.Error{
		Status: http.StatusForbidden, Code: "bad_jwt", Message: "invalid JWT: unable to parse or verify signature",
	}
	errProfileForbidden = &backend.Error{
		Status: http.StatusForbidden, Code: "42501", Message: `new row violates row-level security policy for table "profiles"`,
	}
	errUsernameTaken = &backend.Error{
		Status: http.StatusConflict, Code: backend.CodeUniqueViolation, Message: `duplicate key value violates unique constraint "uq_profiles_username"`,
	}
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// errNotFound is returned by the store when a row does not exist.
var errNotFound = errors.New("not found")

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
