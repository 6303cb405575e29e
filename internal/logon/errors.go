// ABOUTME: Error types surfaced by logon modules
// ABOUTME: ConfigurationError is operator-facing, AuthError is rendered to non-interactive callers

package logon

import (
	"errors"
	"fmt"
)

// ErrNoCredentialSource is wrapped by the ConfigurationError returned when
// neither the serial file nor the htpasswd file exists.
var ErrNoCredentialSource = errors.New("no credential source available")

// ConfigurationError reports a deployment problem (missing or unreadable
// files). It is not recoverable per request.
type ConfigurationError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("logon: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("logon: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AuthError is a structured authentication failure for callers that cannot
// follow a redirect.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is matches any AuthError carrying the same code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

// ErrNotAuthenticated is returned by Check for non-interactive requests that
// carry no valid identity.
var ErrNotAuthenticated = &AuthError{
	Code:    "not_authenticated",
	Message: "logon: not authenticated",
}
