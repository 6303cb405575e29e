// ABOUTME: Configuration loading and parsing for logon-gateway
// ABOUTME: Supports YAML and TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete logon-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Upstream UpstreamConfig `yaml:"upstream" toml:"upstream"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logon    LogonConfig    `yaml:"logon" toml:"logon"`
	Session  SessionConfig  `yaml:"session" toml:"session"`
	Trust    TrustConfig    `yaml:"trust" toml:"trust"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// UpstreamConfig names the protected application
type UpstreamConfig struct {
	URL string `yaml:"url" toml:"url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Logon modules
const (
	ModuleMultisite = "multisite"
	ModuleBearer    = "bearer"
)

// LogonConfig selects and configures the logon module
type LogonConfig struct {
	Module    string          `yaml:"module" toml:"module"`
	Multisite MultisiteConfig `yaml:"multisite" toml:"multisite"`
}

// MultisiteConfig configures cookie verification against the external login system
type MultisiteConfig struct {
	SerialsPath  string `yaml:"serials_path" toml:"serials_path"`
	HtpasswdPath string `yaml:"htpasswd_path" toml:"htpasswd_path"`
	SecretPath   string `yaml:"secret_path" toml:"secret_path"`
	CookiePrefix string `yaml:"cookie_prefix" toml:"cookie_prefix"`
	LoginURL     string `yaml:"login_url" toml:"login_url"`
	CreateUser   bool   `yaml:"create_user" toml:"create_user"`
	CreateRole   string `yaml:"create_role" toml:"create_role"`
	// Signature is hmac-sha256, blake2b-256 or md5
	Signature string `yaml:"signature" toml:"signature"`
}

// Session backends
const (
	SessionMemory = "memory"
	SessionSQLite = "sqlite"
	SessionRedis  = "redis"
)

// SessionConfig configures the gateway's own session storage
type SessionConfig struct {
	Backend    string        `yaml:"backend" toml:"backend"`
	CookieName string        `yaml:"cookie_name" toml:"cookie_name"`
	Lifetime   time.Duration `yaml:"-" toml:"-"`
	Redis      RedisConfig   `yaml:"redis" toml:"redis"`

	// Raw string values for unmarshaling
	LifetimeRaw string `yaml:"lifetime" toml:"lifetime"`
}

// RedisConfig holds redis connection settings for the redis session backend
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// TrustConfig configures the identity token handed to the upstream
type TrustConfig struct {
	TokenSecret string        `yaml:"token_secret" toml:"token_secret"`
	TokenTTL    time.Duration `yaml:"-" toml:"-"`
	Header      string        `yaml:"header" toml:"header"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default values applied by Load
const (
	DefaultHTTPAddr     = "127.0.0.1:8080"
	DefaultCookieName   = "logon_session"
	DefaultLifetime     = 12 * time.Hour
	DefaultTokenTTL     = 5 * time.Minute
	DefaultTokenHeader  = "X-Logon-Token"
	DefaultMetricsPath  = "/metrics"
	DefaultRedisPrefix  = "logon:session"
	DefaultCreateRole   = "guest"
	DefaultCookiePrefix = "auth_"
	DefaultLoginURL     = "/check_mk/login.py"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext (".toml", ".yaml", ".yml").
func Parse(ext string, data []byte) (*Config, error) {
	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Logon.Module == "" {
		c.Logon.Module = ModuleMultisite
	}
	ms := &c.Logon.Multisite
	if ms.CookiePrefix == "" {
		ms.CookiePrefix = DefaultCookiePrefix
	}
	if ms.LoginURL == "" {
		ms.LoginURL = DefaultLoginURL
	}
	if ms.CreateRole == "" {
		ms.CreateRole = DefaultCreateRole
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionSQLite
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.Lifetime == 0 {
		c.Session.Lifetime = DefaultLifetime
	}
	if c.Session.Redis.Prefix == "" {
		c.Session.Redis.Prefix = DefaultRedisPrefix
	}
	if c.Trust.TokenTTL == 0 {
		c.Trust.TokenTTL = DefaultTokenTTL
	}
	if c.Trust.Header == "" {
		c.Trust.Header = DefaultTokenHeader
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	u, err := url.Parse(c.Upstream.URL)
	if err != nil {
		return fmt.Errorf("upstream.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.url must use http or https scheme")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logon.Module {
	case ModuleMultisite:
		ms := c.Logon.Multisite
		if ms.SerialsPath == "" && ms.HtpasswdPath == "" {
			return fmt.Errorf("logon.multisite needs serials_path or htpasswd_path")
		}
		if ms.SecretPath == "" {
			return fmt.Errorf("logon.multisite.secret_path is required")
		}
		switch ms.Signature {
		case "", "hmac-sha256", "blake2b-256", "md5":
		default:
			return fmt.Errorf("logon.multisite.signature %q is not supported", ms.Signature)
		}
	case ModuleBearer:
		if c.Trust.TokenSecret == "" {
			return fmt.Errorf("trust.token_secret is required for the bearer module")
		}
	default:
		return fmt.Errorf("logon.module %q is not supported", c.Logon.Module)
	}

	switch c.Session.Backend {
	case SessionMemory, SessionSQLite:
	case SessionRedis:
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("session.backend %q is not supported", c.Session.Backend)
	}

	if c.Trust.TokenSecret != "" && len(c.Trust.TokenSecret) < 32 {
		return fmt.Errorf("trust.token_secret must be at least 32 bytes")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.LifetimeRaw != "" {
		cfg.Session.Lifetime, err = time.ParseDuration(cfg.Session.LifetimeRaw)
		if err != nil {
			return fmt.Errorf("parsing session.lifetime %q: %w", cfg.Session.LifetimeRaw, err)
		}
	}

	if cfg.Trust.TokenTTLRaw != "" {
		cfg.Trust.TokenTTL, err = time.ParseDuration(cfg.Trust.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing trust.token_ttl %q: %w", cfg.Trust.TokenTTLRaw, err)
		}
	}

	return nil
}

// DefaultPath returns the config file location: LOGON_CONFIG, then
// $XDG_CONFIG_HOME/logon/gateway.yaml, then ~/.config/logon/gateway.yaml.
func DefaultPath() string {
	if p := os.Getenv("LOGON_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "logon", "gateway.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "gateway.yaml"
	}
	return filepath.Join(home, ".config", "logon", "gateway.yaml")
}
