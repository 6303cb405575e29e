// ABOUTME: Logon module for programmatic clients presenting a gateway identity token
// ABOUTME: Verifies Authorization: Bearer tokens minted by the multisite flow

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/logon-gateway/internal/logon"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// BearerModule authenticates requests carrying an identity token. It never
// redirects: callers without a valid token get logon.ErrNotAuthenticated.
type BearerModule struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

var _ logon.Module = (*BearerModule)(nil)

// NewBearerModule creates a BearerModule verifying tokens with verifier.
func NewBearerModule(verifier TokenVerifier, logger *slog.Logger) *BearerModule {
	if logger == nil {
		logger = slog.Default()
	}
	return &BearerModule{verifier: verifier, logger: logger.With("component", "logon", "module", "bearer")}
}

// Name implements logon.Module.
func (b *BearerModule) Name() string { return "bearer" }

// Check implements logon.Module.
func (b *BearerModule) Check(ctx context.Context, req *logon.Request, _ bool) (logon.Result, error) {
	token, errMsg := extractBearerToken(req.Header.Get("Authorization"))
	if errMsg != "" {
		b.logger.Debug("no bearer token", "reason", errMsg)
		return logon.Result{}, logon.ErrNotAuthenticated
	}

	claims, err := b.verifier.Verify(token)
	if err != nil {
		b.logger.Debug("rejected bearer token", "error", err)
		return logon.Result{}, logon.ErrNotAuthenticated
	}

	if req.Trust == nil {
		return logon.Result{Username: claims.Subject}, nil
	}
	req.Trust.TrustUsername(ctx, claims.Subject)
	req.Trust.DisallowLogout()
	return logon.Result{
		Authenticated: req.Trust.IsAuthenticated(ctx),
		Username:      claims.Subject,
	}, nil
}
