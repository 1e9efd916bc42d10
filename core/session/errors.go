package session

import "fmt"

type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindTenant     ErrorKind = "tenant"
	KindUserType   ErrorKind = "userType"
	KindRole       ErrorKind = "role"
	KindPermission ErrorKind = "permission"
	KindNetwork    ErrorKind = "network"
)

// AuthError is the only error type the session manager surfaces.
// Transport, server and decode failures are all folded into it so
// callers never see a raw network or parse error.
type AuthError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.cause }

func authErr(kind ErrorKind, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, cause: cause}
}
