// ABOUTME: Contract shared by logon modules and the collaborators they call
// ABOUTME: Session, trust and provisioning are passed in explicitly per request

package logon

import (
	"context"
	"net/http"
)

// SessionKeyLogonCookie is the session key holding the name of the cookie
// that authenticated the session. It is kept for a future renewal step.
const SessionKeyLogonCookie = "multisite_logon_cookie"

// Session is the per-request session state a module may read and write.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// TrustContext receives a verified username. The gate marks the user as
// pre-authenticated and forbids interactive logout because the login session
// lives in the external system.
type TrustContext interface {
	TrustUsername(ctx context.Context, username string)
	DisallowLogout()
	IsAuthenticated(ctx context.Context) bool
}

// Provisioner makes sure a local user record exists for username, creating it
// with role when autoCreate is set.
type Provisioner interface {
	EnsureUser(ctx context.Context, username string, autoCreate bool, role string) error
}

// Request is everything a module sees of the inbound request.
type Request struct {
	Cookies    []*http.Cookie
	Header     http.Header
	RequestURI string
	// Interactive is false for programmatic (AJAX/API) calls, which get a
	// structured error instead of a redirect.
	Interactive bool
	Session     Session
	Trust       TrustContext
}

// Result is the outcome of a Check that did not fail with an error.
type Result struct {
	Authenticated bool
	Username      string
	// RedirectTo is set when the caller should be sent to the login page.
	RedirectTo string
}

// Module is one authentication strategy.
type Module interface {
	Name() string
	Check(ctx context.Context, req *Request, printErrors bool) (Result, error)
}

// Observer is notified about rejected candidates. It is optional.
type Observer interface {
	CandidateRejected(module string, f Failure)
}
