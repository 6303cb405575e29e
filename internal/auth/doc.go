// Package auth connects logon modules to HTTP handlers.
//
// # Logon Modules
//
// Two logon.Module implementations are available:
//
//   - multisite (package logon): trusts auth_* cookies issued by an external
//     login system. Interactive requests without a valid cookie are redirected
//     to the login page.
//
//   - bearer: trusts "Authorization: Bearer <token>" identity tokens minted
//     by this gateway. Used by programmatic clients.
//
// # Middleware
//
//	LogonMiddleware(module, MiddlewareOptions{...})
//
// For every request the middleware binds the gateway session (cookie
// "logon_session"), builds a per-request Trust, runs the module and then:
//
//   - redirect result: 302 to the login page
//   - logon.AuthError: 401 with {"error": ..., "code": ...}
//   - logon.ConfigurationError: 500, logged for the operator
//   - not authenticated: 403
//   - authenticated: X-Remote-User and the identity token header are set on
//     the request and the AuthContext is attached to its context
//
// # Identity Tokens
//
// Tokens are HS256 JWTs signed with trust.token_secret:
//
//	token, err := verifier.Generate(username, role, ttl)
//	claims, err := verifier.Verify(token)
//
// The subject is the username and the "role" claim the local user's role.
package auth
