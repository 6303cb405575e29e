// ABOUTME: Periodic removal of expired gateway sessions
// ABOUTME: Records each non-empty purge in the audit log and metrics

package gateway

import (
	"context"
	"time"

	"github.com/2389/logon-gateway/internal/store"
)

// runJanitor purges expired sessions until ctx is canceled. Backends that
// expire entries themselves (redis) are skipped.
func (g *Gateway) runJanitor(ctx context.Context) {
	purger, ok := g.sessions.(sessionPurger)
	if !ok {
		return
	}

	ticker := time.NewTicker(g.janitorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.purgeSessions(ctx, purger)
		}
	}
}

func (g *Gateway) purgeSessions(ctx context.Context, purger sessionPurger) {
	n, err := purger.Purge(ctx)
	if err != nil {
		g.logger.Warn("purging expired sessions", "error", err)
		return
	}
	if n == 0 {
		return
	}

	g.metrics.SessionsPurged(n)
	g.logger.Debug("purged expired sessions", "count", n)

	err = g.store.AppendAuditLog(ctx, &store.AuditEntry{
		Actor:      store.AuditActorSystem,
		Action:     store.AuditPurgeSessions,
		TargetType: "session",
		Detail:     map[string]any{"count": n, "backend": g.config.Session.Backend},
	})
	if err != nil {
		g.logger.Warn("recording session purge", "error", err)
	}
}
