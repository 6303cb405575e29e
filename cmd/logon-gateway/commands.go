// ABOUTME: Offline CLI commands for operators
// ABOUTME: init, check-config, verify, token, users, audit and health

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/logon-gateway/internal/auth"
	"github.com/2389/logon-gateway/internal/config"
	"github.com/2389/logon-gateway/internal/gateway"
	"github.com/2389/logon-gateway/internal/logon"
	"github.com/2389/logon-gateway/internal/store"
)

// getDataPath returns the path to the logon data directory.
// Priority: XDG_DATA_HOME/logon > ~/.local/share/logon
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "logon")
}

// flagValues collects every value of flag from args. Both "--flag value" and
// "--flag=value" are accepted.
func flagValues(args []string, flag string) ([]string, error) {
	var values []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == flag:
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", flag)
			}
			values = append(values, args[i+1])
			i++
		case strings.HasPrefix(arg, flag+"="):
			values = append(values, strings.TrimPrefix(arg, flag+"="))
		}
	}
	return values, nil
}

func flagValue(args []string, flag, defaultVal string) (string, error) {
	values, err := flagValues(args, flag)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return defaultVal, nil
	}
	return values[len(values)-1], nil
}

// nopProvisioner satisfies logon.Provisioner for offline verification.
type nopProvisioner struct{}

func (nopProvisioner) EnsureUser(context.Context, string, bool, string) error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runCheckConfig(w io.Writer, configPath string) error {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	green.Fprintf(w, "  ✓ Config:      %s\n", configPath)
	fmt.Fprintf(w, "    Module:      %s\n", cfg.Logon.Module)
	fmt.Fprintf(w, "    Sessions:    %s\n", cfg.Session.Backend)

	if cfg.Logon.Module != config.ModuleMultisite {
		return nil
	}

	m, err := logon.NewMultisite(gateway.MultisiteConfig(cfg), nopProvisioner{}, logon.WithLogger(quietLogger()))
	if err != nil {
		return err
	}

	paths := logon.CredentialPaths{Serials: cfg.Logon.Multisite.SerialsPath, Htpasswd: cfg.Logon.Multisite.HtpasswdPath}
	credPath := paths.Path(m.Source())
	table, err := logon.LoadCredentials(credPath)
	if err != nil {
		return err
	}
	green.Fprintf(w, "  ✓ Credentials: %s (%s, %d users)\n", credPath, m.Source(), len(table))

	if m.SecretMissing() {
		yellow.Fprintf(w, "  ! Secret:      %s missing, every request will be sent to the login page\n", cfg.Logon.Multisite.SecretPath)
	} else {
		green.Fprintf(w, "  ✓ Secret:      %s\n", cfg.Logon.Multisite.SecretPath)
	}

	alg := cfg.Logon.Multisite.Signature
	if alg == "" {
		alg = string(logon.AlgorithmHMACSHA256)
	}
	if alg == string(logon.AlgorithmMD5) {
		yellow.Fprintf(w, "  ! Signature:   %s (legacy, unkeyed)\n", alg)
	} else {
		fmt.Fprintf(w, "    Signature:   %s\n", alg)
	}
	return nil
}

// parseCookieArgs turns NAME=VALUE arguments into cookies, decoding values
// the way the middleware does.
func parseCookieArgs(values []string) ([]*http.Cookie, error) {
	cookies := make([]*http.Cookie, 0, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("cookie %q is not NAME=VALUE", v)
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: logon.DecodeCookieValue(value)})
	}
	return cookies, nil
}

// errRejected is returned by verify when no cookie was accepted, so the exit
// status is usable from scripts.
var errRejected = errors.New("rejected")

func runVerify(w io.Writer, configPath string, args []string) error {
	values, err := flagValues(args, "--cookie")
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("--cookie NAME=VALUE is required")
	}
	cookies, err := parseCookieArgs(values)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Logon.Module != config.ModuleMultisite {
		return fmt.Errorf("verify needs logon.module %q", config.ModuleMultisite)
	}

	m, err := logon.NewMultisite(gateway.MultisiteConfig(cfg), nopProvisioner{}, logon.WithLogger(quietLogger()))
	if err != nil {
		return err
	}
	if m.SecretMissing() {
		fmt.Fprintf(w, "rejected: shared secret %s missing\n", cfg.Logon.Multisite.SecretPath)
		return errRejected
	}

	username, cookieName, err := m.Verify(&logon.Request{Cookies: cookies})
	if err != nil {
		return err
	}
	if username == "" {
		fmt.Fprintln(w, "rejected")
		return errRejected
	}
	color.New(color.FgGreen).Fprintf(w, "accepted: %s", username)
	fmt.Fprintf(w, " (cookie %s)\n", cookieName)
	return nil
}

func runToken(w io.Writer, configPath string, args []string) error {
	user, err := flagValue(args, "--user", "")
	if err != nil {
		return err
	}
	if user == "" {
		return fmt.Errorf("--user is required")
	}
	role, err := flagValue(args, "--role", "")
	if err != nil {
		return err
	}
	ttlRaw, err := flagValue(args, "--ttl", "720h")
	if err != nil {
		return err
	}
	ttl, err := time.ParseDuration(ttlRaw)
	if err != nil {
		return fmt.Errorf("parsing --ttl: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Trust.TokenSecret == "" {
		return fmt.Errorf("trust.token_secret not configured in %s", configPath)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Trust.TokenSecret))
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}
	token, err := verifier.Generate(user, role, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(w, token)
	return nil
}

func runUsers(ctx context.Context, w io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(w, "no users")
		return nil
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w, "%-24s %-12s %-20s %s\n", "USERNAME", "ROLE", "CREATED", "LAST LOGIN")
	for _, u := range users {
		last := "-"
		if u.LastLogin != nil {
			last = u.LastLogin.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%-24s %-12s %-20s %s\n", u.Username, u.Role, u.CreatedAt.Local().Format(time.DateTime), last)
	}
	return nil
}

// runAudit prints the audit log, newest first. Flags: --action NAME,
// --since DURATION and --limit N.
func runAudit(ctx context.Context, w io.Writer, configPath string, args []string) error {
	var filter store.AuditFilter

	action, err := flagValue(args, "--action", "")
	if err != nil {
		return err
	}
	if action != "" {
		a := store.AuditAction(action)
		filter.Action = &a
	}

	since, err := flagValue(args, "--since", "")
	if err != nil {
		return err
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return fmt.Errorf("invalid --since %q: %w", since, err)
		}
		t := time.Now().Add(-d)
		filter.Since = &t
	}

	limit, err := flagValue(args, "--limit", "")
	if err != nil {
		return err
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid --limit %q", limit)
		}
		filter.Limit = n
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	entries, err := s.ListAuditLog(ctx, filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no audit entries")
		return nil
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w, "%-20s %-16s %-8s %-10s %s\n", "TIME", "ACTION", "ACTOR", "TARGET", "DETAIL")
	for _, e := range entries {
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			detail = []byte("{}")
		}
		fmt.Fprintf(w, "%-20s %-16s %-8s %-10s %s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, e.Actor, e.TargetType, detail)
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: %s", strings.TrimSpace(string(body)))
	}
	fmt.Println(string(body))
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("logon-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	defaultDbPath := filepath.Join(getDataPath(), "logon.db")

	outputFile := prompt(reader, "Config file path", config.DefaultPath())
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)
	upstream := prompt(reader, "Upstream application URL", "http://127.0.0.1:5000")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Multisite Logon ---")
	site := prompt(reader, "Monitoring site root", "/omd/sites/mon")
	createUser := isYes(prompt(reader, "Create unknown users on first login?", "yes"))
	createRole := prompt(reader, "Role for created users", config.DefaultCreateRole)

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	secret, err := randomSecret()
	if err != nil {
		return err
	}

	content := renderConfig(initAnswers{
		HTTPAddr:    httpAddr,
		Upstream:    upstream,
		DBPath:      dbPath,
		SiteRoot:    site,
		CreateUser:  createUser,
		CreateRole:  createRole,
		TokenSecret: secret,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
	})

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("\n  ✓ Config written to %s\n", outputFile)
	fmt.Printf("    Data directory: %s\n", dataDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  logon-gateway check-config")
	fmt.Println("  logon-gateway serve")
	return nil
}

type initAnswers struct {
	HTTPAddr    string
	Upstream    string
	DBPath      string
	SiteRoot    string
	CreateUser  bool
	CreateRole  string
	TokenSecret string
	LogLevel    string
	LogFormat   string
}

func renderConfig(a initAnswers) string {
	var b strings.Builder
	b.WriteString("# logon-gateway configuration\n")
	b.WriteString("# Generated by logon-gateway init\n\n")

	fmt.Fprintf(&b, "server:\n  http_addr: %q\n\n", a.HTTPAddr)
	fmt.Fprintf(&b, "upstream:\n  url: %q\n\n", a.Upstream)
	fmt.Fprintf(&b, "database:\n  path: %q\n\n", a.DBPath)

	b.WriteString("logon:\n  module: multisite\n  multisite:\n")
	fmt.Fprintf(&b, "    serials_path: %q\n", filepath.Join(a.SiteRoot, "etc", "check_mk", "auth.serials"))
	fmt.Fprintf(&b, "    htpasswd_path: %q\n", filepath.Join(a.SiteRoot, "etc", "htpasswd"))
	fmt.Fprintf(&b, "    secret_path: %q\n", filepath.Join(a.SiteRoot, "etc", "auth.secret"))
	fmt.Fprintf(&b, "    create_user: %t\n", a.CreateUser)
	fmt.Fprintf(&b, "    create_role: %q\n", a.CreateRole)
	b.WriteString("    signature: \"hmac-sha256\"\n\n")

	b.WriteString("session:\n  backend: sqlite\n  lifetime: \"12h\"\n\n")

	fmt.Fprintf(&b, "trust:\n  token_secret: %q\n  token_ttl: \"5m\"\n\n", a.TokenSecret)

	fmt.Fprintf(&b, "logging:\n  level: %q\n  format: %q\n\n", a.LogLevel, a.LogFormat)

	b.WriteString("metrics:\n  enabled: false\n  path: \"/metrics\"\n")
	return b.String()
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
