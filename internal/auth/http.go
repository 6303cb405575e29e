// ABOUTME: HTTP middleware running a logon module in front of protected handlers
// ABOUTME: Translates check results into redirects, JSON errors or an authenticated context

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/logon-gateway/internal/logon"
	"github.com/2389/logon-gateway/internal/session"
)

const (
	// DefaultSessionCookieName is the gateway's own session cookie
	DefaultSessionCookieName = "logon_session"

	// RemoteUserHeader carries the trusted username to the upstream
	RemoteUserHeader = "X-Remote-User"

	// DefaultTokenHeader carries the identity token to the upstream
	DefaultTokenHeader = "X-Logon-Token"
)

// Check outcomes reported to a Recorder.
const (
	OutcomeAuthenticated   = "authenticated"
	OutcomeRedirect        = "redirect"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeError           = "error"
)

// Recorder receives the outcome of every check.
type Recorder interface {
	ObserveCheck(module, outcome string)
}

// MiddlewareOptions configures LogonMiddleware.
type MiddlewareOptions struct {
	Sessions          session.Store
	SessionCookieName string
	Users             UserLookup
	// Tokens mints identity tokens for the upstream; nil disables the token header.
	Tokens      *JWTVerifier
	TokenTTL    time.Duration
	TokenHeader string
	Recorder    Recorder
	Logger      *slog.Logger
}

// errorBody is the JSON error document returned to non-interactive callers.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Code: code})
}

// IsInteractive reports whether r comes from a page load rather than a
// programmatic client.
func IsInteractive(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return false
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return false
	}
	return true
}

// sessionID returns the request's session ID, issuing a new session cookie
// when it is missing or malformed.
func sessionID(w http.ResponseWriter, r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil && session.ValidID(c.Value) {
		return c.Value
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// LogonMiddleware creates an HTTP middleware that authenticates requests with
// module. Authenticated requests reach next with an AuthContext, the trusted
// username in X-Remote-User and, if configured, an identity token.
func LogonMiddleware(module logon.Module, opts MiddlewareOptions) func(http.Handler) http.Handler {
	if opts.SessionCookieName == "" {
		opts.SessionCookieName = DefaultSessionCookieName
	}
	if opts.TokenHeader == "" {
		opts.TokenHeader = DefaultTokenHeader
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 5 * time.Minute
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore(session.DefaultLifetime)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "logon-middleware", "module", module.Name())

	observe := func(outcome string) {
		if opts.Recorder != nil {
			opts.Recorder.ObserveCheck(module.Name(), outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// identity headers are only ever set by us
			r.Header.Del(RemoteUserHeader)
			r.Header.Del(opts.TokenHeader)

			trust := NewTrust(opts.Users)
			req := &logon.Request{
				Cookies:     logon.RequestCookies(r.Header),
				Header:      r.Header,
				RequestURI:  r.RequestURI,
				Interactive: IsInteractive(r),
				Session:     session.Bind(opts.Sessions, sessionID(w, r, opts.SessionCookieName)),
				Trust:       trust,
			}

			res, err := module.Check(r.Context(), req, true)
			if err != nil {
				var authErr *logon.AuthError
				var cfgErr *logon.ConfigurationError
				switch {
				case errors.As(err, &authErr):
					observe(OutcomeUnauthenticated)
					writeJSONError(w, http.StatusUnauthorized, authErr.Code, authErr.Message)
				case errors.As(err, &cfgErr):
					observe(OutcomeError)
					logger.Error("logon misconfigured", "error", err)
					writeJSONError(w, http.StatusInternalServerError, "configuration_error", "authentication is misconfigured")
				default:
					observe(OutcomeError)
					logger.Error("logon check failed", "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
				}
				return
			}

			if res.RedirectTo != "" {
				observe(OutcomeRedirect)
				http.Redirect(w, r, res.RedirectTo, http.StatusFound)
				return
			}

			authCtx := trust.AuthContext(module.Name())
			if !res.Authenticated || authCtx == nil {
				observe(OutcomeUnauthenticated)
				writeJSONError(w, http.StatusForbidden, "not_authenticated", "not authenticated")
				return
			}

			r.Header.Set(RemoteUserHeader, authCtx.Username)
			if opts.Tokens != nil {
				token, err := opts.Tokens.Generate(authCtx.Username, authCtx.Role, opts.TokenTTL)
				if err != nil {
					observe(OutcomeError)
					logger.Error("minting identity token", "username", authCtx.Username, "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
					return
				}
				r.Header.Set(opts.TokenHeader, token)
			}

			observe(OutcomeAuthenticated)
			logger.Debug("request authenticated", "username", authCtx.Username)
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}
