package upstream

import (
	"errors"
)

var (
	// ErrTransport covers network failures and bodies that are not the
	// JSON shape the endpoint is documented to return.
	ErrTransport = errors.New("upstream transport failure")

	// ErrUnauthorized means there is no credential to attach to the call.
	ErrUnauthorized = errors.New("Unauthorized")

	// ErrTokenExpired means the upstream service rejected the bearer token.
	// Callers should discard the token and ask for credentials again.
	ErrTokenExpired = errors.New("token expired")
)

// AuthError is a sign-in rejection: malformed credentials or an error
// payload returned by the sign-in endpoint.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}
