package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/logon-gateway/internal/config"
	"github.com/2389/logon-gateway/internal/logon"
	"github.com/2389/logon-gateway/internal/store"
)

// writeSite creates htpasswd, secret and config files and returns the config path.
func writeSite(t *testing.T, withSecret bool) string {
	t.Helper()
	dir := t.TempDir()
	etc := filepath.Join(dir, "etc")
	require.NoError(t, os.MkdirAll(filepath.Join(etc, "check_mk"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(etc, "htpasswd"), []byte("alice:alice-secret\nbob:bob-secret\n"), 0o600))
	if withSecret {
		require.NoError(t, os.WriteFile(filepath.Join(etc, "auth.secret"), []byte("shared\n"), 0o600))
	}

	content := renderConfig(initAnswers{
		HTTPAddr:    "127.0.0.1:0",
		Upstream:    "http://127.0.0.1:5000",
		DBPath:      filepath.Join(dir, "logon.db"),
		SiteRoot:    dir,
		CreateUser:  true,
		CreateRole:  "guest",
		TokenSecret: "cli-test-token-secret-0123456789abcdef",
		LogLevel:    "info",
		LogFormat:   "text",
	})
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func signed(t *testing.T, user, userSecret string) string {
	t.Helper()
	signer, err := logon.NewSigner(logon.AlgorithmHMACSHA256)
	require.NoError(t, err)
	return user + ":1700000000:" + signer.Sign(user, "1700000000", userSecret, []byte("shared"))
}

func TestRenderConfig_Loads(t *testing.T) {
	cfg, err := config.Load(writeSite(t, true))
	require.NoError(t, err)
	assert.Equal(t, config.ModuleMultisite, cfg.Logon.Module)
	assert.Equal(t, config.SessionSQLite, cfg.Session.Backend)
	assert.True(t, cfg.Logon.Multisite.CreateUser)
}

func TestRunVerify(t *testing.T) {
	path := writeSite(t, true)

	t.Run("accepted", func(t *testing.T) {
		var out bytes.Buffer
		err := runVerify(&out, path, []string{"--cookie", "auth_mon=" + signed(t, "bob", "bob-secret")})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "accepted: bob")
		assert.Contains(t, out.String(), "auth_mon")
	})

	t.Run("rejected", func(t *testing.T) {
		var out bytes.Buffer
		err := runVerify(&out, path, []string{"--cookie=auth_mon=" + signed(t, "bob", "wrong")})
		assert.ErrorIs(t, err, errRejected)
		assert.Contains(t, out.String(), "rejected")
	})

	t.Run("missing flag", func(t *testing.T) {
		err := runVerify(&bytes.Buffer{}, path, nil)
		assert.ErrorContains(t, err, "--cookie")
	})

	t.Run("malformed argument", func(t *testing.T) {
		err := runVerify(&bytes.Buffer{}, path, []string{"--cookie", "novalue"})
		assert.ErrorContains(t, err, "NAME=VALUE")
	})
}

func TestRunVerify_SecretMissing(t *testing.T) {
	var out bytes.Buffer
	err := runVerify(&out, writeSite(t, false), []string{"--cookie", "auth_mon=" + signed(t, "bob", "bob-secret")})
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, out.String(), "missing")
}

func TestRunCheckConfig(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runCheckConfig(&out, writeSite(t, true)))
	assert.Contains(t, out.String(), "htpasswd, 2 users")

	out.Reset()
	require.NoError(t, runCheckConfig(&out, writeSite(t, false)))
	assert.Contains(t, out.String(), "missing")
}

func TestRunToken(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runToken(&out, writeSite(t, true), []string{"--user", "svc", "--ttl=1h"}))
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte(".")), "expected a JWT")

	assert.ErrorContains(t, runToken(&bytes.Buffer{}, writeSite(t, true), nil), "--user")
}

func TestRunAudit(t *testing.T) {
	path := writeSite(t, true)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runAudit(ctx, &out, path, nil))
	assert.Contains(t, out.String(), "no audit entries")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	require.NoError(t, err)
	require.NoError(t, s.EnsureUser(ctx, "alice", true, "guest"))
	require.NoError(t, s.Close())

	out.Reset()
	require.NoError(t, runAudit(ctx, &out, path, []string{"--since", "1h"}))
	assert.Contains(t, out.String(), "create_user")
	assert.Contains(t, out.String(), `"username":"alice"`)

	out.Reset()
	require.NoError(t, runAudit(ctx, &out, path, []string{"--action=purge_sessions"}))
	assert.Contains(t, out.String(), "no audit entries")

	assert.ErrorContains(t, runAudit(ctx, &bytes.Buffer{}, path, []string{"--limit", "zero"}), "--limit")
	assert.ErrorContains(t, runAudit(ctx, &bytes.Buffer{}, path, []string{"--since", "yesterday"}), "--since")
}

func TestFlagValues(t *testing.T) {
	got, err := flagValues([]string{"--cookie", "a=1", "--other", "--cookie=b=2"}, "--cookie")
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=2"}, got)

	_, err = flagValues([]string{"--cookie"}, "--cookie")
	assert.Error(t, err)
}
