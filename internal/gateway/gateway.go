// ABOUTME: Gateway orchestrator that wires the logon module, sessions and the upstream proxy
// ABOUTME: Manages the HTTP server, store, session janitor and health endpoints lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/2389/logon-gateway/internal/auth"
	"github.com/2389/logon-gateway/internal/config"
	"github.com/2389/logon-gateway/internal/logon"
	"github.com/2389/logon-gateway/internal/metrics"
	"github.com/2389/logon-gateway/internal/session"
	"github.com/2389/logon-gateway/internal/store"
)

// janitorInterval is how often expired sessions are purged.
const janitorInterval = 10 * time.Minute

// sessionPurger is implemented by session backends that do not expire
// entries on their own.
type sessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Gateway orchestrates the logon-gateway server components.
// It authenticates every request with the configured logon module and
// proxies authenticated ones to the upstream application.
type Gateway struct {
	config     *config.Config
	store      *store.SQLiteStore
	sessions   session.Store
	redis      *redis.Client
	module     logon.Module
	multisite  *logon.Multisite
	tokens     *auth.JWTVerifier
	metrics    *metrics.Metrics
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger

	// janitorEvery overrides janitorInterval in tests
	janitorEvery time.Duration
}

// initStore opens the SQLite store backing users, sessions and the audit log.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	return s, nil
}

// initSessions builds the configured session backend. The redis client is
// returned so Shutdown can close it.
func initSessions(cfg *config.Config, s *store.SQLiteStore) (session.Store, *redis.Client, error) {
	switch cfg.Session.Backend {
	case config.SessionMemory:
		return session.NewMemoryStore(cfg.Session.Lifetime), nil, nil
	case config.SessionSQLite:
		return session.NewSQLStore(s, cfg.Session.Lifetime), nil, nil
	case config.SessionRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		return session.NewRedisStore(rdb, cfg.Session.Redis.Prefix, cfg.Session.Lifetime), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// MultisiteConfig converts the multisite section of cfg.
func MultisiteConfig(cfg *config.Config) logon.MultisiteConfig {
	ms := cfg.Logon.Multisite
	return logon.MultisiteConfig{
		SerialsPath:  ms.SerialsPath,
		HtpasswdPath: ms.HtpasswdPath,
		SecretPath:   ms.SecretPath,
		CookiePrefix: ms.CookiePrefix,
		LoginURL:     ms.LoginURL,
		CreateUser:   ms.CreateUser,
		CreateRole:   ms.CreateRole,
		Signature:    logon.Algorithm(ms.Signature),
	}
}

// initModule builds the configured logon module.
func (g *Gateway) initModule() error {
	switch g.config.Logon.Module {
	case config.ModuleMultisite:
		m, err := logon.NewMultisite(MultisiteConfig(g.config), g.store,
			logon.WithLogger(g.logger),
			logon.WithObserver(g.metrics),
		)
		if err != nil {
			return err
		}
		g.multisite = m
		g.module = m
	case config.ModuleBearer:
		if g.tokens == nil {
			return errors.New("bearer module requires trust.token_secret")
		}
		g.module = auth.NewBearerModule(g.tokens, g.logger)
	default:
		return fmt.Errorf("unknown logon module %q", g.config.Logon.Module)
	}
	return nil
}

// New creates a new Gateway instance with the provided configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	gw := &Gateway{
		config:       cfg,
		store:        s,
		metrics:      metrics.New(),
		logger:       logger,
		janitorEvery: janitorInterval,
	}

	if cfg.Trust.TokenSecret != "" {
		gw.tokens, err = auth.NewJWTVerifier([]byte(cfg.Trust.TokenSecret))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("creating token verifier: %w", err)
		}
	} else {
		logger.Warn("trust.token_secret not set, upstream will only receive X-Remote-User")
	}

	if err := gw.initModule(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating logon module: %w", err)
	}

	gw.sessions, gw.redis, err = initSessions(cfg, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	proxy, err := newUpstreamProxy(cfg.Upstream.URL, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	gw.handler = gw.routes(proxy)
	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("gateway initialized",
		"module", gw.module.Name(),
		"session_backend", cfg.Session.Backend,
		"upstream", cfg.Upstream.URL,
	)
	return gw, nil
}

// Handler returns the gateway's root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go g.runJanitor(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	stopJanitor()
	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the store and redis client.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	if g.redis != nil {
		errs = appendCloseError(errs, "redis close", g.redis.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the store and session backend respond and
// the multisite module has its shared secret.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := g.store.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	if rs, ok := g.sessions.(*session.RedisStore); ok {
		if err := rs.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("session backend unavailable"))
			return
		}
	}
	if g.multisite != nil && g.multisite.SecretMissing() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shared secret missing"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%s)", g.module.Name())
}
