package library

import "errors"

// Expected failures returned by UserDirectory. Callers branch on them with errors.Is.
var (
	ErrEmptyField         = errors.New("username and password are required")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// FailureCode maps an expected failure to a stable code that presentation code
// can put in a URL. Unexpected errors map to "internal".
func FailureCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyField):
		return "empty_field"
	case errors.Is(err, ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}
