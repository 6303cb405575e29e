// Package gateway orchestrates the logon-gateway server components.
//
// # Overview
//
// The gateway owns the SQLite store, the session backend, the logon module,
// the identity token verifier and the HTTP server. Every request except the
// health and metrics endpoints passes auth.LogonMiddleware and, once
// authenticated, is reverse-proxied to upstream.url.
//
// # Routes
//
//   - GET /health - Liveness check
//   - GET /health/ready - Store and session backend reachable, shared secret present
//   - GET <metrics.path> - Prometheus metrics (when metrics.enabled)
//   - /* - Logon check, then the upstream application
//
// # Upstream Identity
//
// The upstream receives the trusted username in X-Remote-User and, when
// trust.token_secret is set, a short-lived HS256 token in trust.header.
// Incoming copies of both headers are removed before the check.
//
// # Sessions
//
// The memory and sqlite session backends are purged by a janitor every ten
// minutes; each non-empty purge is written to the audit log. Redis expires
// sessions through key TTLs.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled, then shuts down
package gateway
