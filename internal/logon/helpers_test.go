// ABOUTME: Shared fixtures for logon tests
// ABOUTME: Writes credential and secret files and builds signed cookies

package logon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir      string
	serials  string
	htpasswd string
	secret   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		dir:      dir,
		serials:  filepath.Join(dir, "auth.serials"),
		htpasswd: filepath.Join(dir, "htpasswd"),
		secret:   filepath.Join(dir, "auth.secret"),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (f *fixture) config() MultisiteConfig {
	return MultisiteConfig{
		SerialsPath:  f.serials,
		HtpasswdPath: f.htpasswd,
		SecretPath:   f.secret,
		LoginURL:     "/check_mk/login.py",
		CreateUser:   true,
		CreateRole:   "guest",
	}
}

func cookieValue(t *testing.T, alg Algorithm, username, issueTime, userSecret, shared string) string {
	t.Helper()
	signer, err := NewSigner(alg)
	require.NoError(t, err)
	return username + ":" + issueTime + ":" + signer.Sign(username, issueTime, userSecret, []byte(shared))
}

type fakeProvisioner struct {
	err   error
	calls []string
	role  string
	auto  bool
}

func (p *fakeProvisioner) EnsureUser(_ context.Context, username string, autoCreate bool, role string) error {
	p.calls = append(p.calls, username)
	p.auto = autoCreate
	p.role = role
	return p.err
}

type fakeTrust struct {
	username       string
	logoutDisabled bool
	deny           bool
}

func (f *fakeTrust) TrustUsername(_ context.Context, username string) { f.username = username }
func (f *fakeTrust) DisallowLogout()                                   { f.logoutDisabled = true }
func (f *fakeTrust) IsAuthenticated(context.Context) bool              { return f.username != "" && !f.deny }

type mapSession struct {
	values map[string]string
	err    error
}

func newMapSession() *mapSession {
	return &mapSession{values: map[string]string{}}
}

func (s *mapSession) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapSession) Set(_ context.Context, key, value string) error {
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	return nil
}

var errProvisioning = errors.New("user does not exist")

func cookies(pairs ...string) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &http.Cookie{Name: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func removeFile(path string) error {
	return os.Remove(path)
}
