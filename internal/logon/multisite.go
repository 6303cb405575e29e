// ABOUTME: Multisite logon module trusting cookies issued by an external login system
// ABOUTME: Scans auth cookies, validates signatures and delegates to provisioning and trust

package logon

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// DefaultLoginURL is where unauthenticated interactive requests are sent.
const DefaultLoginURL = "/check_mk/login.py"

// ReturnTargetParam carries the original request URI to the login page.
const ReturnTargetParam = "_origtarget"

// MultisiteConfig holds the paths and policy of the multisite module.
type MultisiteConfig struct {
	SerialsPath  string
	HtpasswdPath string
	SecretPath   string
	CookiePrefix string
	LoginURL     string
	CreateUser   bool
	CreateRole   string
	Signature    Algorithm
}

// Option customizes a Multisite.
type Option func(*Multisite)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Multisite) { m.logger = logger }
}

// WithObserver reports rejected candidates to o.
func WithObserver(o Observer) Option {
	return func(m *Multisite) { m.observer = o }
}

// Multisite validates cookies of the form username:issueTime:signature.
// A Multisite holds only immutable configuration and is safe for concurrent use.
type Multisite struct {
	cfg           MultisiteConfig
	paths         CredentialPaths
	source        CredentialSource
	secret        FileSecretStore
	secretMissing bool
	signer        Signer
	provisioner   Provisioner
	observer      Observer
	logger        *slog.Logger
}

var _ Module = (*Multisite)(nil)

// NewMultisite resolves the credential source. A missing credential source is
// a configuration error, while a missing shared secret only makes every
// Check redirect to the login page.
func NewMultisite(cfg MultisiteConfig, provisioner Provisioner, opts ...Option) (*Multisite, error) {
	if provisioner == nil {
		return nil, fmt.Errorf("multisite: provisioner is required")
	}
	if cfg.CookiePrefix == "" {
		cfg.CookiePrefix = DefaultCookiePrefix
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}

	signer, err := NewSigner(cfg.Signature)
	if err != nil {
		return nil, fmt.Errorf("multisite: %w", err)
	}

	paths := CredentialPaths{Serials: cfg.SerialsPath, Htpasswd: cfg.HtpasswdPath}
	source, err := SelectSource(paths)
	if err != nil {
		return nil, err
	}

	m := &Multisite{
		cfg:         cfg,
		paths:       paths,
		source:      source,
		secret:      FileSecretStore{Path: cfg.SecretPath},
		signer:      signer,
		provisioner: provisioner,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "logon", "module", m.Name())

	m.secretMissing = !m.secret.Exists()
	if m.secretMissing {
		m.logger.Warn("shared secret file missing, all requests will be sent to login", "path", cfg.SecretPath)
	}
	if signer.Algorithm() == AlgorithmMD5 {
		m.logger.Warn("using legacy md5 cookie signatures")
	}
	m.logger.Info("multisite logon ready", "source", source.String(), "path", paths.Path(source))
	return m, nil
}

// Name implements Module.
func (m *Multisite) Name() string { return "multisite" }

// Source reports the credential file chosen at construction.
func (m *Multisite) Source() CredentialSource { return m.source }

// SecretMissing reports whether the shared secret was absent at construction.
func (m *Multisite) SecretMissing() bool { return m.secretMissing }

// Check authenticates req from its auth cookies.
func (m *Multisite) Check(ctx context.Context, req *Request, printErrors bool) (Result, error) {
	if m.secretMissing {
		return m.redirect(req)
	}

	username, cookieName, err := m.Verify(req)
	if err != nil {
		return Result{}, err
	}
	if username == "" {
		return m.redirect(req)
	}

	if req.Session != nil {
		if err := req.Session.Set(ctx, SessionKeyLogonCookie, cookieName); err != nil {
			return Result{}, fmt.Errorf("binding logon cookie to session: %w", err)
		}
	}

	// TODO: renew the external cookie here once the issuer exposes a renewal endpoint.

	if err := m.provisioner.EnsureUser(ctx, username, m.cfg.CreateUser, m.cfg.CreateRole); err != nil {
		level := slog.LevelDebug
		if printErrors {
			level = slog.LevelWarn
		}
		m.logger.Log(ctx, level, "user provisioning failed", "username", username, "error", err)
		return Result{}, nil
	}

	if req.Trust == nil {
		return Result{Username: username}, nil
	}
	req.Trust.TrustUsername(ctx, username)
	req.Trust.DisallowLogout()
	return Result{
		Authenticated: req.Trust.IsAuthenticated(ctx),
		Username:      username,
	}, nil
}

// Verify returns the first valid identity among the request's auth cookies
// and the name of the cookie carrying it. An empty username means no cookie
// was valid. If several cookies are valid, which one wins is unspecified.
func (m *Multisite) Verify(req *Request) (username, cookieName string, err error) {
	var (
		shared []byte
		table  CredentialTable
		loaded bool
	)

	for c := range Candidates(req.Cookies, m.cfg.CookiePrefix) {
		if !loaded {
			shared, err = m.secret.Load()
			if err != nil {
				return "", "", err
			}
			table, err = LoadCredentials(m.paths.Path(m.source))
			if err != nil {
				return "", "", err
			}
			loaded = true
		}

		name, failure := Validate(c, table, m.signer, shared)
		if failure == FailureNone {
			return name, c.Name, nil
		}
		m.logger.Debug("rejected auth cookie", "cookie", c.Name, "reason", failure.String())
		if m.observer != nil {
			m.observer.CandidateRejected(m.Name(), failure)
		}
	}
	return "", "", nil
}

// redirect sends interactive callers to the login page and returns
// ErrNotAuthenticated to everyone else.
func (m *Multisite) redirect(req *Request) (Result, error) {
	if !req.Interactive {
		return Result{}, ErrNotAuthenticated
	}
	return Result{RedirectTo: LoginRedirect(m.cfg.LoginURL, req.RequestURI)}, nil
}

// LoginRedirect appends the percent-encoded return target to loginURL.
func LoginRedirect(loginURL, requestURI string) string {
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + ReturnTargetParam + "=" + url.QueryEscape(requestURI)
}
