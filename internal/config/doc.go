// Package config handles configuration loading for logon-gateway.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files (chosen by extension) with
// environment variable expansion, defaults and validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from LOGON_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/logon/gateway.yaml
//  3. ~/.config/logon/gateway.yaml
//
// # Environment Variable Expansion
//
//	trust:
//	  token_secret: "${LOGON_TOKEN_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// session.lifetime and trust.token_ttl use Go's time.ParseDuration syntax
// ("12h", "5m").
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//	upstream:
//	  url: "http://127.0.0.1:5000"   # protected application
//	database:
//	  path: "/var/lib/logon/logon.db"
//	logon:
//	  module: multisite              # or bearer
//	  multisite:
//	    serials_path: "/omd/sites/mon/etc/check_mk/auth.serials"
//	    htpasswd_path: "/omd/sites/mon/etc/htpasswd"
//	    secret_path: "/omd/sites/mon/etc/auth.secret"
//	    cookie_prefix: "auth_"
//	    login_url: "/check_mk/login.py"
//	    create_user: true
//	    create_role: "guest"
//	    signature: "hmac-sha256"     # blake2b-256, md5 (legacy)
//	session:
//	  backend: sqlite                # memory, redis
//	  cookie_name: "logon_session"
//	  lifetime: "12h"
//	  redis:
//	    addr: "127.0.0.1:6379"
//	trust:
//	  token_secret: "${LOGON_TOKEN_SECRET}"
//	  token_ttl: "5m"
//	  header: "X-Logon-Token"
//	logging:
//	  level: info                    # debug, warn, error
//	  format: text                   # json
//	metrics:
//	  enabled: true
//	  path: /metrics
package config
