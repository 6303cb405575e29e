// Package logon verifies identity cookies issued by an external login system.
//
// # Cookie format
//
// The external system sets one or more cookies named with the auth prefix
// (default "auth_") whose value is
//
//	username:issueTime:signature
//
// The signature is derived from the username, the issue time, the user's
// secret from the credential file and the installation-wide shared secret:
//
//	signature = Sign(username, issueTime, userSecret, sharedSecret)
//
// Supported constructions are HMAC-SHA256 (default), keyed BLAKE2b-256, and
// the legacy unkeyed MD5 used by older issuers.
//
// # Credential files
//
// Per-user secrets come from exactly one of two files with the same
// "username:secret" layout. The serial file wins when it exists, otherwise the
// htpasswd file is used. Neither file nor the shared secret is cached: both are
// read again on every check.
//
// # Outcomes
//
// A Multisite check ends in one of:
//
//   - authenticated: the cookie name is stored in the session, the user is
//     provisioned and handed to the TrustContext
//   - redirect: interactive requests get Result.RedirectTo pointing at the
//     login page with the original URI in "_origtarget"
//   - ErrNotAuthenticated: non-interactive requests never get a redirect
//   - ConfigurationError: credential or secret files could not be read
package logon
