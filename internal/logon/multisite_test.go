// ABOUTME: Tests for the multisite logon module
// ABOUTME: Covers source selection, secret handling, cookie scanning and outcomes

package logon

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadyFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	writeFile(t, f.serials, "alice:s3cr3t\nbob:b0b\n")
	writeFile(t, f.secret, "top\n")
	return f
}

func interactiveRequest(jar ...string) (*Request, *mapSession, *fakeTrust) {
	sess := newMapSession()
	trust := &fakeTrust{}
	return &Request{
		Cookies:     cookies(jar...),
		RequestURI:  "/nagvis/frontend/index.php?mod=Map&show=demo",
		Interactive: true,
		Session:     sess,
		Trust:       trust,
	}, sess, trust
}

func TestNewMultisite_NoCredentialSource(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.secret, "top")

	_, err := NewMultisite(f.config(), &fakeProvisioner{})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrNoCredentialSource)
}

func TestNewMultisite_RequiresProvisioner(t *testing.T) {
	f := newReadyFixture(t)
	_, err := NewMultisite(f.config(), nil)
	assert.Error(t, err)
}

func TestNewMultisite_UnknownSignature(t *testing.T) {
	f := newReadyFixture(t)
	cfg := f.config()
	cfg.Signature = "crc32"
	_, err := NewMultisite(cfg, &fakeProvisioner{})
	assert.Error(t, err)
}

func TestMultisite_Authenticated(t *testing.T) {
	f := newReadyFixture(t)
	prov := &fakeProvisioner{}
	m, err := NewMultisite(f.config(), prov)
	require.NoError(t, err)
	assert.Equal(t, SourceSerial, m.Source())
	assert.False(t, m.SecretMissing())

	req, sess, trust := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", "top"),
	)

	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, "alice", res.Username)
	assert.Empty(t, res.RedirectTo)
	assert.Equal(t, "auth_site", sess.values[SessionKeyLogonCookie])
	assert.Equal(t, []string{"alice"}, prov.calls)
	assert.True(t, prov.auto)
	assert.Equal(t, "guest", prov.role)
	assert.Equal(t, "alice", trust.username)
	assert.True(t, trust.logoutDisabled)
}

func TestMultisite_TrustVerdictIsReturned(t *testing.T) {
	f := newReadyFixture(t)
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	req, _, trust := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", "top"),
	)
	trust.deny = true

	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Empty(t, res.RedirectTo)
}

func TestMultisite_ValidCookieWinsRegardlessOfOrder(t *testing.T) {
	f := newReadyFixture(t)
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	valid := cookieValue(t, AlgorithmHMACSHA256, "bob", "5", "b0b", "top")
	invalid := cookieValue(t, AlgorithmHMACSHA256, "alice", "5", "wrong", "top")

	orders := [][]string{
		{"auth_bad", invalid, "auth_good", valid},
		{"auth_good", valid, "auth_bad", invalid},
	}
	for _, jar := range orders {
		req, sess, _ := interactiveRequest(jar...)
		res, err := m.Check(context.Background(), req, false)
		require.NoError(t, err)
		assert.True(t, res.Authenticated)
		assert.Equal(t, "bob", res.Username)
		assert.Equal(t, "auth_good", sess.values[SessionKeyLogonCookie])
	}
}

func TestMultisite_NoValidCookieRedirects(t *testing.T) {
	f := newReadyFixture(t)
	prov := &fakeProvisioner{}
	m, err := NewMultisite(f.config(), prov)
	require.NoError(t, err)

	req, sess, trust := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "wrong", "top"),
	)

	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Equal(t,
		"/check_mk/login.py?_origtarget=%2Fnagvis%2Ffrontend%2Findex.php%3Fmod%3DMap%26show%3Ddemo",
		res.RedirectTo)
	assert.Empty(t, sess.values)
	assert.Empty(t, prov.calls)
	assert.Empty(t, trust.username)
}

func TestMultisite_NonInteractiveGetsStructuredError(t *testing.T) {
	f := newReadyFixture(t)
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	req, _, _ := interactiveRequest()
	req.Interactive = false

	res, err := m.Check(context.Background(), req, true)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, res.RedirectTo)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "not_authenticated", authErr.Code)
}

func TestMultisite_MissingSecretRedirects(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.serials, "alice:s3cr3t\n")

	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)
	assert.True(t, m.SecretMissing())

	req, _, _ := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", ""),
	)
	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.NotEmpty(t, res.RedirectTo)

	// the asymmetry holds even if the file appears later
	writeFile(t, f.secret, "top")
	res, err = m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RedirectTo)
}

func TestMultisite_SerialFileIsExclusive(t *testing.T) {
	f := newReadyFixture(t)
	writeFile(t, f.htpasswd, "alice:htpasswd-secret\n")

	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	serialCookie := cookieValue(t, AlgorithmHMACSHA256, "alice", "1", "s3cr3t", "top")
	htCookie := cookieValue(t, AlgorithmHMACSHA256, "alice", "1", "htpasswd-secret", "top")

	check := func(value string) bool {
		req, _, _ := interactiveRequest("auth_s", value)
		res, err := m.Check(context.Background(), req, true)
		require.NoError(t, err)
		return res.Authenticated
	}

	assert.True(t, check(serialCookie))
	assert.False(t, check(htCookie))

	writeFile(t, f.htpasswd, "alice:changed\nmallory:x\n")
	assert.True(t, check(serialCookie))
	assert.False(t, check(htCookie))
}

func TestMultisite_CredentialEditsApplyWithoutRestart(t *testing.T) {
	f := newReadyFixture(t)
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	value := cookieValue(t, AlgorithmHMACSHA256, "carol", "1", "c4r0l", "top")
	req, _, _ := interactiveRequest("auth_s", value)
	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)

	writeFile(t, f.serials, "carol:c4r0l\n")
	req, _, _ = interactiveRequest("auth_s", value)
	res, err = m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
}

func TestMultisite_ProvisioningFailure(t *testing.T) {
	f := newReadyFixture(t)
	prov := &fakeProvisioner{err: errProvisioning}
	m, err := NewMultisite(f.config(), prov)
	require.NoError(t, err)

	req, _, trust := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", "top"),
	)
	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Empty(t, res.Username)
	assert.Empty(t, res.RedirectTo)
	assert.Empty(t, trust.username)
}

func TestMultisite_NonASCIIUsername(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.serials, "jörg:s3cr3t\n")
	writeFile(t, f.secret, "top\n")
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	value := cookieValue(t, AlgorithmHMACSHA256, "jörg", "100", "s3cr3t", "top")

	tests := []struct {
		name   string
		header string
	}{
		{"raw utf-8", "auth_site=" + value},
		{"percent-encoded", "other=1; auth_site=" + url.QueryEscape(value)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("Cookie", tt.header)
			req, _, _ := interactiveRequest()
			req.Cookies = RequestCookies(h)

			res, err := m.Check(context.Background(), req, true)
			require.NoError(t, err)
			assert.True(t, res.Authenticated)
			assert.Equal(t, "jörg", res.Username)
			assert.Empty(t, res.RedirectTo)
		})
	}
}

func TestMultisite_SessionWriteFailure(t *testing.T) {
	f := newReadyFixture(t)
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	req, sess, _ := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", "top"),
	)
	sess.err = errors.New("session store down")

	_, err = m.Check(context.Background(), req, true)
	assert.Error(t, err)
}

func TestMultisite_CredentialFileRemovedAfterStartup(t *testing.T) {
	f := newReadyFixture(t)
	m, err := NewMultisite(f.config(), &fakeProvisioner{})
	require.NoError(t, err)

	require.NoError(t, removeFile(f.serials))

	req, _, _ := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", "top"),
	)
	_, err = m.Check(context.Background(), req, true)

	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMultisite_LegacyMD5(t *testing.T) {
	f := newReadyFixture(t)
	cfg := f.config()
	cfg.Signature = AlgorithmMD5
	m, err := NewMultisite(cfg, &fakeProvisioner{})
	require.NoError(t, err)

	req, _, _ := interactiveRequest(
		"auth_site", cookieValue(t, AlgorithmMD5, "alice", "100", "s3cr3t", "top"),
	)
	res, err := m.Check(context.Background(), req, true)
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
}

type countingObserver struct {
	failures map[Failure]int
}

func (o *countingObserver) CandidateRejected(_ string, f Failure) {
	o.failures[f]++
}

func TestMultisite_ObserverSeesRejections(t *testing.T) {
	f := newReadyFixture(t)
	obs := &countingObserver{failures: map[Failure]int{}}
	m, err := NewMultisite(f.config(), &fakeProvisioner{}, WithObserver(obs))
	require.NoError(t, err)

	req, _, _ := interactiveRequest(
		"auth_a", cookieValue(t, AlgorithmHMACSHA256, "nobody", "1", "x", "top"),
		"auth_b", cookieValue(t, AlgorithmHMACSHA256, "alice", "1", "wrong", "top"),
	)
	_, err = m.Check(context.Background(), req, true)
	require.NoError(t, err)

	assert.Equal(t, 1, obs.failures[FailureUnknownUser])
	assert.Equal(t, 1, obs.failures[FailureSignatureMismatch])
}

func TestLoginRedirect(t *testing.T) {
	assert.Equal(t, "/login.py?_origtarget=%2Fa+b", LoginRedirect("/login.py", "/a b"))
	assert.Equal(t, "/login?x=1&_origtarget=%2F", LoginRedirect("/login?x=1", "/"))
}
